package validation

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/y-hirakaw/webcalc/internal/errors"
	"github.com/y-hirakaw/webcalc/internal/i18n"
	"github.com/y-hirakaw/webcalc/internal/tape"
)

const (
	// MaxTapeSize はセッションごとに保持できる計算記録の上限
	MaxTapeSize = 1000
	// MinSessionTTL はセッションの有効期限の下限
	MinSessionTTL = time.Minute
)

// ServerSettings は検証対象のサーバー設定
type ServerSettings struct {
	Addr       string
	Lang       string
	Tape       tape.Backend
	TapeSize   int
	SessionTTL time.Duration
	RateLimit  int
}

// ConfigValidator validates server configuration
type ConfigValidator struct{}

// NewConfigValidator creates a new configuration validator
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// Validate performs comprehensive validation on the configuration
func (v *ConfigValidator) Validate(settings *ServerSettings) error {
	if settings == nil {
		return errors.InvalidConfig("config", "configuration cannot be nil")
	}

	if err := v.validateAddr(settings.Addr); err != nil {
		return err
	}

	if err := v.validateLang(settings.Lang); err != nil {
		return err
	}

	if err := v.validateTape(settings.Tape, settings.TapeSize); err != nil {
		return err
	}

	// Zero means the default TTL
	if settings.SessionTTL != 0 && settings.SessionTTL < MinSessionTTL {
		return errors.InvalidConfig("SessionTTL",
			fmt.Sprintf("must be at least %s, got: %s", MinSessionTTL, settings.SessionTTL))
	}

	if settings.RateLimit < 0 {
		return errors.InvalidConfig("RateLimit",
			fmt.Sprintf("must not be negative, got: %d", settings.RateLimit))
	}

	return nil
}

// validateAddr checks that the listen address has a usable port
func (v *ConfigValidator) validateAddr(addr string) error {
	if addr == "" {
		return nil
	}

	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return errors.InvalidConfig("Addr", fmt.Sprintf("invalid listen address: %s", addr))
	}

	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return errors.InvalidConfig("Addr", fmt.Sprintf("port must be between 0 and 65535, got: %s", port))
	}
	return nil
}

// validateLang checks that the language is supported
func (v *ConfigValidator) validateLang(lang string) error {
	if lang == "" {
		return nil
	}
	if _, ok := i18n.ParseLocale(lang); !ok {
		return errors.InvalidConfig("Lang", fmt.Sprintf("unsupported language: %s (%s)", lang, availableLocales()))
	}
	return nil
}

// availableLocales は読み込まれているロケールを "en|ja" の形で返す
func availableLocales() string {
	locales := i18n.Global().GetAvailableLocales()
	names := make([]string, 0, len(locales))
	for _, locale := range locales {
		names = append(names, string(locale))
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

// validateTape checks the tape backend and its size
func (v *ConfigValidator) validateTape(backend tape.Backend, size int) error {
	switch backend {
	case "", tape.BackendMemory, tape.BackendDuckDB:
	default:
		return errors.InvalidConfig("Tape",
			fmt.Sprintf("unknown backend: %s (memory|duckdb)", backend))
	}

	// Zero means the default size
	if size < 0 || size > MaxTapeSize {
		return errors.InvalidConfig("TapeSize",
			fmt.Sprintf("must be between 0 and %d, got: %d", MaxTapeSize, size))
	}
	return nil
}
