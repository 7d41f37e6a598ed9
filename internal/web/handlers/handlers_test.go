package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/afero"

	"github.com/y-hirakaw/webcalc/internal/calculator"
	"github.com/y-hirakaw/webcalc/internal/i18n"
	"github.com/y-hirakaw/webcalc/internal/session"
	"github.com/y-hirakaw/webcalc/internal/testutil"
	"github.com/y-hirakaw/webcalc/internal/web"
	"github.com/y-hirakaw/webcalc/internal/web/middleware"
)

// newTestServer はテスト用のHTTPサーバーとCookieを保持するクライアントを作成する
func newTestServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()

	config := web.DefaultConfig()
	config.Secret = "test-secret"
	srv, err := web.NewServer(config)
	testutil.AssertNoError(t, err, "creating server")
	t.Cleanup(func() { srv.Close() })

	ts := httptest.NewServer(Routes(srv))
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	testutil.AssertNoError(t, err, "creating cookie jar")
	return ts, &http.Client{Jar: jar}
}

func postInput(t *testing.T, client *http.Client, base, kind, value string) (*http.Response, []byte) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"type": kind, "value": value})
	req, err := http.NewRequest(http.MethodPost, base+"/api/input", bytes.NewReader(body))
	testutil.AssertNoError(t, err, "building request")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Language", "en")

	resp, err := client.Do(req)
	testutil.AssertNoError(t, err, "posting input")
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func TestInputSequence(t *testing.T) {
	ts, client := newTestServer(t)

	inputs := []struct{ kind, value string }{
		{"digit", "1"}, {"digit", "2"},
		{"operator", "add"},
		{"digit", "3"},
		{"equals", ""},
	}

	var snap calculator.Snapshot
	for _, in := range inputs {
		resp, body := postInput(t, client, ts.URL, in.kind, in.value)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s(%s): status %d body %s", in.kind, in.value, resp.StatusCode, body)
		}
		testutil.AssertNoError(t, json.Unmarshal(body, &snap), "decoding snapshot")
	}

	testutil.AssertSnapshot(t, snap, "15", "", "15")
	testutil.AssertEqual(t, snap.Trace, "12 + 3 =", "trace")
}

func TestInputErrors(t *testing.T) {
	ts, client := newTestServer(t)

	tests := []struct {
		name  string
		kind  string
		value string
		want  string
	}{
		{"unknown operator", "operator", "pow", "Unknown operator: pow"},
		{"invalid digit", "digit", "12", "Enter a single digit or decimal point: 12"},
		{"unknown event", "sqrt", "", "Unknown input event: sqrt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := postInput(t, client, ts.URL, tt.kind, tt.value)
			testutil.AssertEqual(t, resp.StatusCode, http.StatusBadRequest, "status")

			var errBody middleware.ErrorBody
			testutil.AssertNoError(t, json.Unmarshal(body, &errBody), "decoding error")
			testutil.AssertEqual(t, errBody.Error, tt.want, "error message")
			if len(errBody.Suggestions) == 0 {
				t.Error("expected suggestions")
			}
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/input", "application/json", strings.NewReader("{"))
		testutil.AssertNoError(t, err, "posting")
		resp.Body.Close()
		testutil.AssertEqual(t, resp.StatusCode, http.StatusBadRequest, "status")
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/input")
		testutil.AssertNoError(t, err, "getting")
		resp.Body.Close()
		testutil.AssertEqual(t, resp.StatusCode, http.StatusMethodNotAllowed, "status")
	})
}

func TestStateETag(t *testing.T) {
	ts, client := newTestServer(t)

	resp, err := client.Get(ts.URL + "/api/state")
	testutil.AssertNoError(t, err, "getting state")
	var snap calculator.Snapshot
	json.NewDecoder(resp.Body).Decode(&snap)
	resp.Body.Close()

	testutil.AssertSnapshot(t, snap, "0", "", "")
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/state", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err = client.Do(req)
	testutil.AssertNoError(t, err, "conditional get")
	resp.Body.Close()
	testutil.AssertEqual(t, resp.StatusCode, http.StatusNotModified, "unchanged state")

	postInput(t, client, ts.URL, "digit", "7")

	resp, err = client.Do(req)
	testutil.AssertNoError(t, err, "conditional get after input")
	resp.Body.Close()
	testutil.AssertEqual(t, resp.StatusCode, http.StatusOK, "changed state")
	if resp.Header.Get("ETag") == etag {
		t.Error("ETag should change with the snapshot")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	ts, alice := newTestServer(t)
	bob := &http.Client{}
	bob.Jar, _ = cookiejar.New(nil)

	postInput(t, alice, ts.URL, "digit", "9")

	resp, err := bob.Get(ts.URL + "/api/state")
	testutil.AssertNoError(t, err, "getting state")
	defer resp.Body.Close()
	var snap calculator.Snapshot
	json.NewDecoder(resp.Body).Decode(&snap)
	testutil.AssertEqual(t, snap.Display, "0", "other session display")
}

func TestForgedCookieStartsNewSession(t *testing.T) {
	ts, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/state", nil)
	req.AddCookie(&http.Cookie{Name: web.SessionCookie, Value: "deadbeef.forged"})
	resp, err := http.DefaultClient.Do(req)
	testutil.AssertNoError(t, err, "getting state")
	resp.Body.Close()

	var issued bool
	for _, c := range resp.Cookies() {
		if c.Name == web.SessionCookie && c.Value != "deadbeef.forged" {
			issued = true
		}
	}
	if !issued {
		t.Error("expected a new session cookie")
	}
}

func TestTape(t *testing.T) {
	ts, client := newTestServer(t)

	for _, in := range [][2]string{{"digit", "6"}, {"operator", "divide"}, {"digit", "4"}, {"equals", ""}} {
		postInput(t, client, ts.URL, in[0], in[1])
	}

	resp, err := client.Get(ts.URL + "/api/tape?limit=5")
	testutil.AssertNoError(t, err, "getting tape")
	defer resp.Body.Close()

	var body struct {
		Entries []struct {
			Expression string `json:"expression"`
			Result     string `json:"result"`
		} `json:"entries"`
		Count int `json:"count"`
		Limit int `json:"limit"`
	}
	testutil.AssertNoError(t, json.NewDecoder(resp.Body).Decode(&body), "decoding tape")
	testutil.AssertEqual(t, body.Count, 1, "entry count")
	testutil.AssertEqual(t, body.Limit, 5, "limit")
	testutil.AssertEqual(t, body.Entries[0].Expression, "6 ÷ 4 =", "expression")
	testutil.AssertEqual(t, body.Entries[0].Result, "1.5", "result")
}

func TestHealth(t *testing.T) {
	ts, client := newTestServer(t)

	resp, err := client.Get(ts.URL + "/api/health")
	testutil.AssertNoError(t, err, "getting health")
	defer resp.Body.Close()

	var body map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&body)
	testutil.AssertEqual(t, resp.StatusCode, http.StatusOK, "status")
	testutil.AssertEqual(t, body["status"], "ok", "health status")
	testutil.AssertEqual(t, body["version"], web.Version, "version")
}

func TestIndexPage(t *testing.T) {
	ts, client := newTestServer(t)

	resp, err := client.Get(ts.URL + "/?lang=en")
	testutil.AssertNoError(t, err, "getting page")
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	page := string(data)

	testutil.AssertEqual(t, resp.StatusCode, http.StatusOK, "status")
	for _, want := range []string{
		"<title>Calculator</title>",
		`data-operator="divide"`,
		`data-action="square"`,
		"No calculations yet",
		`<output id="display">0</output>`,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page does not contain %q", want)
		}
	}
	if resp.Header.Get("Content-Security-Policy") == "" {
		t.Error("missing security headers")
	}

	resp, err = client.Get(ts.URL + "/missing")
	testutil.AssertNoError(t, err, "getting missing page")
	resp.Body.Close()
	testutil.AssertEqual(t, resp.StatusCode, http.StatusNotFound, "missing page")
}

func TestIndexPageJapanese(t *testing.T) {
	i18n.SetLocale(i18n.LocaleJA)
	ts, client := newTestServer(t)

	resp, err := client.Get(ts.URL + "/?lang=ja")
	testutil.AssertNoError(t, err, "getting page")
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), "<title>電卓</title>") {
		t.Error("page should be localized")
	}
}

func TestStaticAssets(t *testing.T) {
	ts, client := newTestServer(t)

	for _, path := range []string{"/static/app.js", "/static/style.css"} {
		resp, err := client.Get(ts.URL + path)
		testutil.AssertNoError(t, err, "getting "+path)
		resp.Body.Close()
		testutil.AssertEqual(t, resp.StatusCode, http.StatusOK, path)
	}
}

func TestCustomAssets(t *testing.T) {
	assets := afero.NewMemMapFs()
	testutil.AssertNoError(t, afero.WriteFile(assets, "index.html",
		[]byte(`<p>{{.Title}}:{{.Snapshot.Display}}</p>`), 0o644), "writing template")
	testutil.AssertNoError(t, afero.WriteFile(assets, "app.js",
		[]byte(`console.log("custom")`), 0o644), "writing script")

	config := web.DefaultConfig()
	config.Secret = "test-secret"
	srv, err := web.NewServerWithAssets(config, assets)
	testutil.AssertNoError(t, err, "creating server")
	t.Cleanup(func() { srv.Close() })

	ts := httptest.NewServer(Routes(srv))
	t.Cleanup(ts.Close)
	jar, err := cookiejar.New(nil)
	testutil.AssertNoError(t, err, "creating cookie jar")
	client := &http.Client{Jar: jar}

	resp, err := client.Get(ts.URL + "/?lang=en")
	testutil.AssertNoError(t, err, "getting page")
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	testutil.AssertEqual(t, string(data), "<p>Calculator:0</p>", "page")

	resp, err = client.Get(ts.URL + "/static/app.js")
	testutil.AssertNoError(t, err, "getting script")
	data, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	testutil.AssertEqual(t, string(data), `console.log("custom")`, "script")

	resp, err = client.Get(ts.URL + "/static/style.css")
	testutil.AssertNoError(t, err, "getting stylesheet")
	resp.Body.Close()
	testutil.AssertEqual(t, resp.StatusCode, http.StatusNotFound, "embedded stylesheet should be replaced")
}

func dialWebSocket(t *testing.T, ts *httptest.Server, client *http.Client) *websocket.Conn {
	t.Helper()
	dialer := websocket.Dialer{Jar: client.Jar, HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", http.Header{"X-Language": {"en"}})
	testutil.AssertNoError(t, err, "dialing websocket")
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

type wsFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	var frame wsFrame
	testutil.AssertNoError(t, conn.ReadJSON(&frame), "reading frame")
	return frame
}

func readSnapshot(t *testing.T, conn *websocket.Conn) calculator.Snapshot {
	t.Helper()
	frame := readFrame(t, conn)
	testutil.AssertEqual(t, frame.Type, session.UpdateTypeSnapshot, "frame type")
	var snap calculator.Snapshot
	testutil.AssertNoError(t, json.Unmarshal(frame.Data, &snap), "decoding snapshot")
	return snap
}

func TestWebSocket(t *testing.T) {
	ts, client := newTestServer(t)

	// Cookieを発行してから接続する
	postInput(t, client, ts.URL, "digit", "4")

	conn := dialWebSocket(t, ts, client)
	testutil.AssertEqual(t, readSnapshot(t, conn).Display, "4", "initial snapshot")

	conn.WriteJSON(map[string]string{"type": "operator", "value": "multiply"})
	testutil.AssertSnapshot(t, readSnapshot(t, conn), "4", "×", "4 ×")

	conn.WriteJSON(map[string]string{"type": "ping"})
	testutil.AssertEqual(t, readFrame(t, conn).Type, "pong", "ping reply")

	conn.WriteJSON(map[string]string{"type": "digit", "value": "x"})
	frame := readFrame(t, conn)
	testutil.AssertEqual(t, frame.Type, "error", "invalid event reply")
	var errData struct {
		Message string `json:"message"`
	}
	json.Unmarshal(frame.Data, &errData)
	testutil.AssertEqual(t, errData.Message, "Enter a single digit or decimal point: x", "error message")
}

func TestWebSocketBroadcastsToEveryTab(t *testing.T) {
	ts, client := newTestServer(t)
	postInput(t, client, ts.URL, "clear", "")

	first := dialWebSocket(t, ts, client)
	second := dialWebSocket(t, ts, client)
	readSnapshot(t, first)
	readSnapshot(t, second)

	// POSTによる入力も購読中の全ての接続に届く
	postInput(t, client, ts.URL, "digit", "8")

	testutil.AssertEqual(t, readSnapshot(t, first).Display, "8", "first tab")
	testutil.AssertEqual(t, readSnapshot(t, second).Display, "8", "second tab")
}
