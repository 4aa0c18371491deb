package auth

import (
	"net/http"
	"os"
	"time"
)

const (
	AccessCookieName  = "accessToken"
	RefreshCookieName = "refreshToken"
)

func cookieSecurity() (secure bool, sameSite http.SameSite) {
	env := os.Getenv("ENV")
	sameSite = http.SameSiteStrictMode
	if env == "development" || env == "local" || env == "" {
		sameSite = http.SameSiteLaxMode // Allow testing from Postman
	}
	secure = env == "production" || env == "prod"
	return secure, sameSite
}

// SetSessionCookies stores both credentials as httpOnly cookies.
func SetSessionCookies(w http.ResponseWriter, accessToken, refreshToken string, accessTTL, refreshTTL time.Duration) {
	secure, sameSite := cookieSecurity()

	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName,
		Value:    accessToken,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Path:     "/",
		MaxAge:   int(accessTTL.Seconds()),
	})

	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    refreshToken,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Path:     "/",
		MaxAge:   int(refreshTTL.Seconds()),
	})
}

// SetAccessCookie replaces only the access credential (refresh flow).
func SetAccessCookie(w http.ResponseWriter, accessToken string, accessTTL time.Duration) {
	secure, sameSite := cookieSecurity()
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName,
		Value:    accessToken,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Path:     "/",
		MaxAge:   int(accessTTL.Seconds()),
	})
}

// ClearSessionCookies removes both credentials (logout).
func ClearSessionCookies(w http.ResponseWriter) {
	secure, sameSite := cookieSecurity()
	for _, name := range []string{AccessCookieName, RefreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			HttpOnly: true,
			Secure:   secure,
			SameSite: sameSite,
			Path:     "/",
			MaxAge:   -1,
		})
	}
}
