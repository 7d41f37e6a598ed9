package handlers

import (
	"net/http"

	"github.com/y-hirakaw/webcalc/internal/web"
	"github.com/y-hirakaw/webcalc/internal/web/middleware"
)

// Routes はルーティングを設定したハンドラーを返す
func Routes(server *web.Server) http.Handler {
	mux := http.NewServeMux()

	page := NewPageHandler(server)
	api := NewAPIHandler(server)
	limit := middleware.RateLimit(server.GetConfig().RateLimit)

	// 静的ファイル
	mux.Handle("/static/", page.HandleStatic())

	// 電卓ページ
	mux.Handle("/", page.HandleIndex())

	// API エンドポイント
	mux.Handle("/api/state", api.HandleState())
	mux.Handle("/api/input", limit(api.HandleInput()))
	mux.Handle("/api/tape", api.HandleTape())
	mux.Handle("/api/health", api.HandleHealth())

	// WebSocket
	mux.Handle("/ws", api.HandleWebSocket())

	// ミドルウェアを適用
	return middleware.Chain(mux,
		middleware.Recover,
		middleware.Logger,
		middleware.CORS,
		middleware.Security,
		middleware.I18n,
	)
}
