package security

import (
	"net/http"
	"time"
)

const (
	SessionCookieName  = "__session"
	RefreshCookieName  = "__refresh"
	VerifiedCookieName = "__verified"
	RefreshCookiePath  = "/api/v1/auth"
)

type CookieSettings struct {
	Secure     bool
	SessionTTL time.Duration
	RefreshTTL time.Duration
}

func SetSessionCookie(w http.ResponseWriter, s CookieSettings, value string) {
	setCookie(w, SessionCookieName, value, "/", s.SessionTTL, true, s.Secure)
}

func SetRefreshCookie(w http.ResponseWriter, s CookieSettings, value string) {
	setCookie(w, RefreshCookieName, value, RefreshCookiePath, s.RefreshTTL, true, s.Secure)
}

// SetVerifiedHint writes the client-readable hint mirroring the server's
// email verification state.
func SetVerifiedHint(w http.ResponseWriter, s CookieSettings, verified bool) {
	value := "0"
	if verified {
		value = "1"
	}
	setCookie(w, VerifiedCookieName, value, "/", s.SessionTTL, false, s.Secure)
}

func ClearVerifiedHint(w http.ResponseWriter, s CookieSettings) {
	clearCookie(w, VerifiedCookieName, "/", false, s.Secure)
}

func ClearAuthCookies(w http.ResponseWriter, s CookieSettings) {
	clearCookie(w, SessionCookieName, "/", true, s.Secure)
	clearCookie(w, RefreshCookieName, RefreshCookiePath, true, s.Secure)
	clearCookie(w, VerifiedCookieName, "/", false, s.Secure)
}

func GetCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func setCookie(w http.ResponseWriter, name, value, path string, ttl time.Duration, httpOnly, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: httpOnly,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearCookie(w http.ResponseWriter, name, path string, httpOnly, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: httpOnly,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}
