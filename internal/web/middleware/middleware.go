package middleware

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/y-hirakaw/webcalc/internal/i18n"
)

// Middleware はHTTPミドルウェアの型
type Middleware func(http.Handler) http.Handler

type contextKey string

const localeKey contextKey = "locale"

// Chain は複数のミドルウェアを連鎖させる
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Logger はリクエストログを出力するミドルウェア
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// カスタムResponseWriterでステータスコードをキャプチャ
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(ww, r)

		log.Printf("%s %s %d %v %s",
			r.Method,
			r.URL.Path,
			ww.statusCode,
			time.Since(start),
			r.UserAgent(),
		)
	})
}

// responseWriter はステータスコードをキャプチャするためのラッパー
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap は http.ResponseController が元のWriterを取り出すために使う
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Hijack はWebSocketへのアップグレードのために接続を引き渡す
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// CORS はCORSヘッダーを設定するミドルウェア
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Language, If-None-Match")

		// プリフライトリクエストの処理
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Security はセキュリティヘッダーを設定するミドルウェア
func Security(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self'; "+
				"style-src 'self'; "+
				"connect-src 'self' ws: wss:")

		next.ServeHTTP(w, r)
	})
}

// I18n は国際化のコンテキストを設定するミドルウェア
func I18n(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 言語を決定する優先順位:
		// 1. X-Language ヘッダー
		// 2. lang クエリパラメータ
		// 3. Accept-Language ヘッダー
		// 4. サーバーのデフォルト言語
		locale := i18n.GetLocale()
		for _, candidate := range []string{
			r.Header.Get("X-Language"),
			r.URL.Query().Get("lang"),
			r.Header.Get("Accept-Language"),
		} {
			if candidate == "" {
				continue
			}
			if parsed, ok := i18n.ParseLocale(candidate); ok {
				locale = parsed
				break
			}
		}

		next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), locale)))
	})
}

// WithLocale はコンテキストに言語情報を設定する
func WithLocale(ctx context.Context, locale i18n.Locale) context.Context {
	return context.WithValue(ctx, localeKey, locale)
}

// GetLocaleFromContext はコンテキストから言語情報を取得する
func GetLocaleFromContext(ctx context.Context) i18n.Locale {
	if locale, ok := ctx.Value(localeKey).(i18n.Locale); ok {
		return locale
	}
	return i18n.GetLocale()
}

// JSON はJSONレスポンス用のヘッダーを設定するミドルウェア
func JSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// RateLimit は簡単なレート制限ミドルウェア（0以下は無制限）
//
// HTTPリクエスト単位で数える。WebSocket 接続内のメッセージは対象外。
func RateLimit(requestsPerMinute int) Middleware {
	limiter := newRateLimiter(requestsPerMinute)

	return func(next http.Handler) http.Handler {
		if requestsPerMinute <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.allow(getClientIP(r), time.Now()) {
				WriteJSONError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter はクライアントごとの直近一分間のリクエスト時刻を保持する
type rateLimiter struct {
	mu        sync.Mutex
	limit     int
	clients   map[string][]time.Time
	lastPurge time.Time
}

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		clients: make(map[string][]time.Time),
	}
}

// allow はリクエストを受け付けるかどうかを返し、受け付けた場合は記録する
func (l *rateLimiter) allow(clientIP string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	// 一分以上リクエストの無いクライアントを破棄
	if now.Sub(l.lastPurge) >= time.Minute {
		for ip, times := range l.clients {
			if len(times) == 0 || now.Sub(times[len(times)-1]) >= time.Minute {
				delete(l.clients, ip)
			}
		}
		l.lastPurge = now
	}

	validTimes := l.clients[clientIP][:0]
	for _, t := range l.clients[clientIP] {
		if now.Sub(t) < time.Minute {
			validTimes = append(validTimes, t)
		}
	}
	if len(validTimes) >= l.limit {
		l.clients[clientIP] = validTimes
		return false
	}
	l.clients[clientIP] = append(validTimes, now)
	return true
}

// getClientIP はクライアントのIPアドレスを取得する
func getClientIP(r *http.Request) string {
	// X-Forwarded-For ヘッダーをチェック
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	// X-Real-IP ヘッダーをチェック
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Recover はパニックを捕捉するミドルウェア
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("Panic recovered: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// ErrorBody はJSON形式のエラーレスポンス
type ErrorBody struct {
	Error       string   `json:"error"`
	Status      int      `json:"status"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// WriteJSONError はJSON形式のエラーレスポンスを書き込む
func WriteJSONError(w http.ResponseWriter, statusCode int, message string, suggestions ...string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorBody{
		Error:       message,
		Status:      statusCode,
		Suggestions: suggestions,
	})
}
