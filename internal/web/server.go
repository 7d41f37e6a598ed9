package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/afero"

	"github.com/y-hirakaw/webcalc/internal/i18n"
	"github.com/y-hirakaw/webcalc/internal/security"
	"github.com/y-hirakaw/webcalc/internal/session"
	"github.com/y-hirakaw/webcalc/internal/tape"
	"github.com/y-hirakaw/webcalc/internal/validation"
)

// Version はサーバーのバージョン
const Version = "0.1.0"

// SessionCookie はセッションIDを保持するCookie名
const SessionCookie = "webcalc_session"

// Config はWebサーバーの設定
type Config struct {
	Addr        string
	Debug       bool
	Lang        string
	StaticDir   string
	MessagesDir string
	Tape        tape.Backend
	TapeSize    int
	SessionTTL  time.Duration
	Secret      string
	RateLimit   int
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() *Config {
	return &Config{
		Addr:       ":8080",
		Lang:       string(i18n.LocaleJA),
		Tape:       tape.BackendMemory,
		TapeSize:   tape.DefaultLimit,
		SessionTTL: session.DefaultTTL,
	}
}

// settings は検証用の設定値を返す
func (c *Config) settings() *validation.ServerSettings {
	return &validation.ServerSettings{
		Addr:       c.Addr,
		Lang:       c.Lang,
		Tape:       c.Tape,
		TapeSize:   c.TapeSize,
		SessionTTL: c.SessionTTL,
		RateLimit:  c.RateLimit,
	}
}

// Server は電卓のWebサーバー
type Server struct {
	config   *Config
	sessions *session.Manager
	tape     tape.Tape
	signer   *security.SessionSigner
	assets   afero.Fs
}

// NewServer は新しいWebサーバーを作成する
func NewServer(config *Config) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := validation.NewConfigValidator().Validate(config.settings()); err != nil {
		return nil, err
	}

	if locale, ok := i18n.ParseLocale(config.Lang); ok {
		i18n.SetLocale(locale)
	}
	if config.MessagesDir != "" {
		if err := i18n.Global().LoadMessagesFromDir(afero.NewOsFs(), config.MessagesDir); err != nil {
			return nil, fmt.Errorf("failed to load messages: %w", err)
		}
	}

	signer, err := security.NewSessionSigner(config.Secret)
	if err != nil {
		return nil, err
	}

	tp, err := tape.Open(config.Tape, config.TapeSize)
	if err != nil {
		return nil, err
	}

	assets, err := openAssets(config.StaticDir)
	if err != nil {
		tp.Close()
		return nil, err
	}

	return &Server{
		config:   config,
		sessions: session.NewManager(tp, config.SessionTTL, config.Debug),
		tape:     tp,
		signer:   signer,
		assets:   assets,
	}, nil
}

// Sessions はセッションマネージャーを返す
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// Assets は静的ファイルのファイルシステムを返す
func (s *Server) Assets() afero.Fs {
	return s.assets
}

// GetConfig は設定を取得する
func (s *Server) GetConfig() *Config {
	return s.config
}

// Start は期限切れセッションの定期破棄を開始する
func (s *Server) Start(ctx context.Context) {
	interval := s.config.SessionTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	go s.sessions.Run(ctx, interval)
}

// Close はサーバーのリソースを解放する
func (s *Server) Close() error {
	s.sessions.Close()
	return s.tape.Close()
}

// IsHealthy はサーバーの健全性をチェックする
func (s *Server) IsHealthy(ctx context.Context) bool {
	_, err := s.tape.Recent(ctx, "health-check", 1)
	return err == nil
}

// SessionFromRequest はCookieからセッションを取得する。無効または無い場合は新しく作成しCookieを設定する
func (s *Server) SessionFromRequest(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	var id string
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		if verified, ok := s.signer.Verify(cookie.Value); ok {
			id = verified
		}
	}

	sess, created, err := s.sessions.GetOrCreate(id)
	if err != nil {
		return nil, err
	}

	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    s.signer.Sign(sess.ID),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
			Secure:   r.TLS != nil,
		})
		if s.config.Debug {
			log.Printf("🍪 New session cookie issued for %s", r.RemoteAddr)
		}
	}
	return sess, nil
}
