// Package identity provides anonymous per-device shopper identity.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"time"
)

const (
	// ShopperCookieName carries the anonymous shopper ID between visits.
	ShopperCookieName = "bease_anon_id"
	shopperCookieAge  = 30 * 24 * time.Hour
)

type contextKey int

const shopperIDKey contextKey = iota

var shopperIDPattern = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)

// ShopperIDFromContext extracts the shopper ID from the request context.
func ShopperIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(shopperIDKey).(string); ok {
		return v
	}
	return ""
}

func generateShopperID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate shopper id: %w", err)
	}
	return "anon_" + hex.EncodeToString(buf), nil
}

func isValidShopperID(id string) bool {
	return shopperIDPattern.MatchString(id)
}

func getOrCreateShopperID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	if c, err := r.Cookie(ShopperCookieName); err == nil && isValidShopperID(c.Value) {
		setShopperCookie(w, c.Value, isDev)
		return c.Value, nil
	}

	id, err := generateShopperID()
	if err != nil {
		return "", err
	}
	setShopperCookie(w, id, isDev)
	return id, nil
}

func setShopperCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     ShopperCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(shopperCookieAge.Seconds()),
		Expires:  time.Now().Add(shopperCookieAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// Middleware injects an anonymous per-device shopper identity so search
// history can be kept without accounts.
func Middleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			shopperID, err := getOrCreateShopperID(w, r, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish anonymous identity"}`, http.StatusInternalServerError)
				return
			}
			ctx := context.WithValue(r.Context(), shopperIDKey, shopperID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
