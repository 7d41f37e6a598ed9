package main

import (
	"context"
	stderrors "errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/y-hirakaw/webcalc/internal/errors"
	"github.com/y-hirakaw/webcalc/internal/i18n"
	"github.com/y-hirakaw/webcalc/internal/security"
	"github.com/y-hirakaw/webcalc/internal/tape"
	"github.com/y-hirakaw/webcalc/internal/web"
	"github.com/y-hirakaw/webcalc/internal/web/handlers"
)

const (
	// DefaultPort はデフォルトのサーバーポート
	DefaultPort = "8080"
	// shutdownTimeout は停止時に処理中のリクエストを待つ時間
	shutdownTimeout = 5 * time.Second
)

func main() {
	defaults := web.DefaultConfig()

	var (
		port      = flag.String("port", envOr("WEBCALC_PORT", DefaultPort), "Server port")
		lang      = flag.String("lang", envOr("WEBCALC_LANG", defaults.Lang), "Default language (ja|en)")
		debug     = flag.Bool("debug", envOr("WEBCALC_DEBUG", "") == "true", "Enable debug mode")
		static    = flag.String("static", os.Getenv("WEBCALC_STATIC_DIR"), "Serve page assets from this directory instead of the embedded ones")
		messages  = flag.String("messages", os.Getenv("WEBCALC_MESSAGES_DIR"), "Directory of additional <name>.<locale>.json message catalogs")
		tapeKind  = flag.String("tape", envOr("WEBCALC_TAPE", string(defaults.Tape)), "Calculation history backend (memory|duckdb)")
		tapeSize  = flag.Int("tape-size", envInt("WEBCALC_TAPE_SIZE", defaults.TapeSize), "Calculations kept per session")
		ttl       = flag.Duration("session-ttl", envDuration("WEBCALC_SESSION_TTL", defaults.SessionTTL), "Idle time before a session is discarded")
		rateLimit = flag.Int("rate-limit", envInt("WEBCALC_RATE_LIMIT", 0), "Input requests per minute per client (0 = unlimited)")
	)
	flag.Parse()

	// 国際化システムを初期化
	i18n.Initialize()

	server, err := web.NewServer(&web.Config{
		Addr:        ":" + *port,
		Debug:       *debug,
		Lang:        *lang,
		StaticDir:   *static,
		MessagesDir: *messages,
		Tape:        tape.Backend(*tapeKind),
		TapeSize:    *tapeSize,
		SessionTTL:  *ttl,
		Secret:      os.Getenv(security.SecretEnv),
		RateLimit:   *rateLimit,
	})
	if err != nil {
		log.Fatalf("Server failed to initialize:\n%s", errors.FormatError(err))
	}
	defer server.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 期限切れセッションの破棄を開始
	server.Start(ctx)

	httpServer := &http.Server{
		Addr:              server.GetConfig().Addr,
		Handler:           handlers.Routes(server),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🧮 Web Calculator starting on port %s", *port)
	log.Printf("🗣️  Language: %s", *lang)
	log.Printf("📜 Tape: %s (%d per session)", *tapeKind, *tapeSize)
	if *static != "" {
		log.Printf("📁 Static directory: %s", *static)
	}
	if os.Getenv(security.SecretEnv) == "" {
		log.Printf("Warning: %s is not set, sessions will not survive a restart", security.SecretEnv)
	}
	if *debug {
		log.Printf("🐛 Debug mode enabled")
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Printf("🛑 Shutting down...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Warning: shutdown: %v", err)
		}
	}()

	if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// envOr は環境変数の値を返す。未設定の場合は def を返す
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}
