package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gorilla/websocket"

	"github.com/y-hirakaw/webcalc/internal/calculator"
	"github.com/y-hirakaw/webcalc/internal/errors"
	"github.com/y-hirakaw/webcalc/internal/i18n"
	"github.com/y-hirakaw/webcalc/internal/security"
	"github.com/y-hirakaw/webcalc/internal/session"
	"github.com/y-hirakaw/webcalc/internal/tape"
	"github.com/y-hirakaw/webcalc/internal/web"
	"github.com/y-hirakaw/webcalc/internal/web/middleware"
)

// maxInputBody は入力イベント本文の上限
const maxInputBody = 1 << 10

// inputRequest は POST /api/input とWebSocketで受け取るメッセージ
type inputRequest struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// APIHandler はAPIエンドポイントを処理する
type APIHandler struct {
	server   *web.Server
	upgrader websocket.Upgrader
}

// NewAPIHandler は新しいAPIハンドラーを作成する
func NewAPIHandler(server *web.Server) *APIHandler {
	return &APIHandler{
		server: server,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// 開発時は全てのオリジンを許可
				return server.GetConfig().Debug || sameOrigin(r)
			},
		},
	}
}

// sameOrigin は Origin ヘッダーがリクエスト先と一致するかを返す
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// HandleState は現在の描画情報を返すAPIエンドポイント
func (h *APIHandler) HandleState() http.Handler {
	return middleware.JSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.server.SessionFromRequest(w, r)
		if err != nil {
			h.writeError(w, r, http.StatusInternalServerError, errors.InvalidSession())
			return
		}

		body, err := json.Marshal(sess.Snapshot())
		if err != nil {
			middleware.WriteJSONError(w, http.StatusInternalServerError, i18n.TL(locale(r), "generic_error"))
			return
		}

		etag := snapshotETag(body)
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "no-cache")
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Write(body)
	}))
}

// snapshotETag は描画情報のJSONからETagを作成する
func snapshotETag(body []byte) string {
	return fmt.Sprintf(`"%016x"`, xxhash.Sum64(body))
}

// HandleInput は入力イベントを適用するAPIエンドポイント
func (h *APIHandler) HandleInput() http.Handler {
	return middleware.JSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			middleware.WriteJSONError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
			return
		}

		var req inputRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInputBody)).Decode(&req); err != nil {
			h.writeError(w, r, http.StatusBadRequest, errors.InvalidRequestBody(err))
			return
		}

		ev, err := calculator.ParseEvent(req.Type, req.Value)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, errors.InvalidInput(err, req.Type, req.Value))
			return
		}

		sess, err := h.server.SessionFromRequest(w, r)
		if err != nil {
			h.writeError(w, r, http.StatusInternalServerError, errors.InvalidSession())
			return
		}

		snap, err := h.server.Sessions().Apply(r.Context(), sess.ID, ev)
		if err != nil {
			h.writeError(w, r, http.StatusNotFound, errors.InvalidSession())
			return
		}

		json.NewEncoder(w).Encode(snap)
	}))
}

// HandleTape は計算履歴を返すAPIエンドポイント
func (h *APIHandler) HandleTape() http.Handler {
	return middleware.JSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 制限数を取得（デフォルト: tape.DefaultLimit）
		limit := tape.DefaultLimit
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
				limit = l
			}
		}

		sess, err := h.server.SessionFromRequest(w, r)
		if err != nil {
			h.writeError(w, r, http.StatusInternalServerError, errors.InvalidSession())
			return
		}

		entries, err := h.server.Sessions().Recent(r.Context(), sess.ID, limit)
		if err != nil {
			status := http.StatusInternalServerError
			friendly := errors.TapeUnavailable(err)
			if stderrors.Is(err, session.ErrNotFound) {
				status = http.StatusNotFound
				friendly = errors.InvalidSession()
			}
			h.writeError(w, r, status, friendly)
			return
		}

		// レスポンスを作成
		response := map[string]interface{}{
			"entries":   entries,
			"count":     len(entries),
			"limit":     limit,
			"timestamp": time.Now(),
		}

		json.NewEncoder(w).Encode(response)
	}))
}

// HandleHealth はヘルスチェックエンドポイント
func (h *APIHandler) HandleHealth() http.Handler {
	return middleware.JSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		statusCode := http.StatusOK

		if !h.server.IsHealthy(r.Context()) {
			status = "error"
			statusCode = http.StatusServiceUnavailable
		}

		response := map[string]interface{}{
			"status":    status,
			"sessions":  h.server.Sessions().Len(),
			"timestamp": time.Now(),
			"version":   web.Version,
		}

		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(response)
	}))
}

// HandleWebSocket はWebSocket接続を処理する
//
// 書き込みはこのハンドラーのゴルーチンだけが行う。読み込みループからの応答は replies を経由する。
func (h *APIHandler) HandleWebSocket() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.server.SessionFromRequest(w, r)
		if err != nil {
			h.writeError(w, r, http.StatusInternalServerError, errors.InvalidSession())
			return
		}

		clientID, err := security.NewID()
		if err != nil {
			h.writeError(w, r, http.StatusInternalServerError, errors.InvalidSession())
			return
		}

		// リアルタイム更新を購読
		updates, err := h.server.Sessions().Subscribe(sess.ID, clientID)
		if err != nil {
			h.writeError(w, r, http.StatusNotFound, errors.InvalidSession())
			return
		}
		defer h.server.Sessions().Unsubscribe(sess.ID, clientID)

		// WebSocket接続にアップグレード
		conn, err := h.upgrader.Upgrade(w, r, w.Header().Clone())
		if err != nil {
			return
		}
		defer conn.Close()

		if h.server.GetConfig().Debug {
			log.Printf("🔌 WebSocket connected: session=%s client=%s", sess.ID, clientID)
		}

		// 初期データを送信
		if err := conn.WriteJSON(&session.Update{
			Type:      session.UpdateTypeSnapshot,
			Timestamp: time.Now(),
			Data:      sess.Snapshot(),
		}); err != nil {
			return
		}

		replies := make(chan *session.Update, 16)
		done := make(chan struct{})
		go h.readMessages(r.Context(), conn, sess.ID, middleware.GetLocaleFromContext(r.Context()), replies, done)

		// 更新イベントを送信
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				if err := conn.WriteJSON(update); err != nil {
					return
				}
			case reply := <-replies:
				if err := conn.WriteJSON(reply); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	})
}

// readMessages はWebSocketメッセージを処理する
func (h *APIHandler) readMessages(ctx context.Context, conn *websocket.Conn, sessionID string, loc i18n.Locale, replies chan<- *session.Update, done chan<- struct{}) {
	defer close(done)

	reply := func(update *session.Update) {
		select {
		case replies <- update:
		default:
			// 書き込みが詰まっている場合は破棄
		}
	}

	for {
		var message inputRequest
		if err := conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && h.server.GetConfig().Debug {
				log.Printf("WebSocket closed unexpectedly: %v", err)
			}
			return
		}

		// メッセージタイプに応じて処理
		if message.Type == "ping" {
			reply(&session.Update{Type: "pong", Timestamp: time.Now()})
			continue
		}

		ev, err := calculator.ParseEvent(message.Type, message.Value)
		if err != nil {
			reply(errorUpdate(errors.InvalidInput(err, message.Type, message.Value), loc))
			continue
		}

		// 描画情報は購読チャネル経由で全ての接続に届く
		if _, err := h.server.Sessions().Apply(ctx, sessionID, ev); err != nil {
			reply(errorUpdate(errors.InvalidSession(), loc))
			return
		}
	}
}

// errorUpdate はエラーをWebSocketのメッセージに変換する
func errorUpdate(err *errors.FriendlyError, loc i18n.Locale) *session.Update {
	return &session.Update{
		Type:      "error",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"message":     err.Localize(loc),
			"suggestions": err.GetSuggestions(),
		},
	}
}

// writeError はフレンドリーエラーをリクエストの言語でJSONに書き込む
func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, status int, err *errors.FriendlyError) {
	if h.server.GetConfig().Debug && err.Cause != nil {
		log.Printf("Warning: %s %s: %v", r.Method, r.URL.Path, err.Cause)
	}
	middleware.WriteJSONError(w, status, err.Localize(locale(r)), err.GetSuggestions()...)
}

// locale はリクエストの言語を返す
func locale(r *http.Request) i18n.Locale {
	return middleware.GetLocaleFromContext(r.Context())
}
