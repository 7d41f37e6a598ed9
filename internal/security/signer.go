package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SecretEnv はセッション署名用のパスフレーズを指定する環境変数
	SecretEnv = "WEBCALC_SESSION_SECRET"

	keySalt       = "webcalc-session-v1"
	keyIterations = 10000
	keyLength     = 32
	idBytes       = 16
)

// SessionSigner はセッションIDに署名し、Cookieの改ざんを検出する
type SessionSigner struct {
	key []byte
}

// NewSessionSigner はパスフレーズから署名キーを導出する
//
// パスフレーズが空の場合は環境変数、それも無ければランダムに生成する。
// ランダム生成の場合、プロセスの再起動で既存のCookieは無効になる。
func NewSessionSigner(passphrase string) (*SessionSigner, error) {
	if passphrase == "" {
		passphrase = os.Getenv(SecretEnv)
	}
	if passphrase == "" {
		generated, err := generatePassphrase()
		if err != nil {
			return nil, fmt.Errorf("パスフレーズの生成に失敗: %w", err)
		}
		passphrase = generated
	}

	return &SessionSigner{
		key: deriveKey(passphrase),
	}, nil
}

// deriveKey はパスフレーズから署名キーを導出する
func deriveKey(passphrase string) []byte {
	return pbkdf2.Key([]byte(passphrase), []byte(keySalt), keyIterations, keyLength, sha256.New)
}

// generatePassphrase はランダムなパスフレーズを生成する
func generatePassphrase() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// NewID はランダムなセッションIDを生成する
func NewID() (string, error) {
	bytes := make([]byte, idBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("セッションIDの生成に失敗: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Sign は "<id>.<署名>" 形式のトークンを返す
func (s *SessionSigner) Sign(id string) string {
	return id + "." + s.mac(id)
}

// Verify はトークンを検証し、セッションIDを返す
func (s *SessionSigner) Verify(token string) (string, bool) {
	id, sig, ok := strings.Cut(token, ".")
	if !ok || id == "" || sig == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(s.mac(id))) {
		return "", false
	}
	return id, true
}

func (s *SessionSigner) mac(id string) string {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
