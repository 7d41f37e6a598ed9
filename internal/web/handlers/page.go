package handlers

import (
	"bytes"
	"html/template"
	"log"
	"net/http"
	"sync"

	"github.com/spf13/afero"

	"github.com/y-hirakaw/webcalc/internal/calculator"
	"github.com/y-hirakaw/webcalc/internal/i18n"
	"github.com/y-hirakaw/webcalc/internal/tape"
	"github.com/y-hirakaw/webcalc/internal/web"
)

// historyOnPage はページに埋め込む履歴の件数
const historyOnPage = 10

// PageHandler は電卓ページを処理する
type PageHandler struct {
	server *web.Server

	mu   sync.Mutex
	tmpl *template.Template
}

// NewPageHandler は新しいページハンドラーを作成する
func NewPageHandler(server *web.Server) *PageHandler {
	return &PageHandler{server: server}
}

// pageLabels はボタンと見出しの表示文字列
type pageLabels struct {
	Clear     string
	Backspace string
	Square    string
	Equals    string
	History   string
	NoHistory string
	Connected string
	Offline   string
}

// pageOperator は演算子ボタン
type pageOperator struct {
	Name   string
	Symbol string
}

// pageData はテンプレートに渡すデータ
type pageData struct {
	Locale    i18n.Locale
	Title     string
	Labels    pageLabels
	Snapshot  calculator.Snapshot
	Operators []pageOperator
	History   []tape.Entry
}

// HandleIndex はインデックスページを処理する
func (h *PageHandler) HandleIndex() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		tmpl, err := h.template()
		if err != nil {
			log.Printf("Error: failed to load page template: %v", err)
			http.Error(w, i18n.TL(locale(r), "generic_error"), http.StatusInternalServerError)
			return
		}

		sess, err := h.server.SessionFromRequest(w, r)
		if err != nil {
			http.Error(w, i18n.TL(locale(r), "session_invalid"), http.StatusInternalServerError)
			return
		}

		history, err := h.server.Sessions().Recent(r.Context(), sess.ID, historyOnPage)
		if err != nil {
			history = nil
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, h.pageData(locale(r), sess.Snapshot(), history)); err != nil {
			log.Printf("Error: failed to render page: %v", err)
			http.Error(w, i18n.TL(locale(r), "generic_error"), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(buf.Bytes())
	})
}

// HandleStatic は静的ファイルを配信する
func (h *PageHandler) HandleStatic() http.Handler {
	return http.StripPrefix("/static/", http.FileServer(afero.NewHttpFs(h.server.Assets()).Dir(".")))
}

// template はページテンプレートを返す。デバッグ時は毎回読み込み直す
func (h *PageHandler) template() (*template.Template, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.tmpl != nil && !h.server.GetConfig().Debug {
		return h.tmpl, nil
	}

	content, err := afero.ReadFile(h.server.Assets(), "index.html")
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New("index").Parse(string(content))
	if err != nil {
		return nil, err
	}
	h.tmpl = tmpl
	return tmpl, nil
}

func (h *PageHandler) pageData(loc i18n.Locale, snap calculator.Snapshot, history []tape.Entry) pageData {
	operators := make([]pageOperator, 0, len(calculator.Operators()))
	for _, op := range calculator.Operators() {
		operators = append(operators, pageOperator{Name: op.String(), Symbol: op.Symbol()})
	}

	return pageData{
		Locale: loc,
		Title:  i18n.TL(loc, "page_title"),
		Labels: pageLabels{
			Clear:     i18n.TL(loc, "button_clear"),
			Backspace: i18n.TL(loc, "button_backspace"),
			Square:    i18n.TL(loc, "button_square"),
			Equals:    i18n.TL(loc, "button_equals"),
			History:   i18n.TL(loc, "label_history"),
			NoHistory: i18n.TL(loc, "label_no_history"),
			Connected: i18n.TL(loc, "label_connected"),
			Offline:   i18n.TL(loc, "label_offline"),
		},
		Snapshot:  snap,
		Operators: operators,
		History:   history,
	}
}
