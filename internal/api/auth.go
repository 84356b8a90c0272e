package api

import (
	"net/http"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"crypto-backtest/internal/backtest"
)

// TOTPHeader carries the one-time code on REST calls. WebSocket clients,
// which cannot set headers from a browser, pass it as ?totp=.
const TOTPHeader = "X-TOTP"

// TOTPGuard requires a valid time-based one-time code on wrapped handlers.
// A nil guard lets every request through.
type TOTPGuard struct {
	secret string
	now    func() time.Time
}

// NewTOTPGuard returns a guard for secret, or nil when secret is empty.
func NewTOTPGuard(secret string) *TOTPGuard {
	if secret == "" {
		return nil
	}
	return &TOTPGuard{secret: secret, now: time.Now}
}

// Enabled reports whether requests are checked.
func (g *TOTPGuard) Enabled() bool { return g != nil }

// Valid checks code against the current 30s window, allowing one step
// of clock skew either side.
func (g *TOTPGuard) Valid(code string) bool {
	if g == nil {
		return true
	}
	if code == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, g.secret, g.now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// Wrap rejects requests without a valid code. CORS preflights pass.
func (g *TOTPGuard) Wrap(next http.Handler) http.Handler {
	if g == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		code := r.Header.Get(TOTPHeader)
		if code == "" {
			code = r.URL.Query().Get("totp")
		}
		if !g.Valid(code) {
			SetCORS(w)
			writeJSON(w, http.StatusUnauthorized, backtest.Response{Error: "missing or invalid one-time code"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
