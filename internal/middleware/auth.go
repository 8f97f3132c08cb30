// Package middleware содержит HTTP middleware сервиса предложений: аутентификацию,
// сжатие и журналирование запросов.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielkolev/offersrv-sub002/internal/model"
)

type contextKey string

const identityKey contextKey = "identity"

const (
	authCookieName = "auth_token"
	authCookieTTL  = 365 * 24 * time.Hour
)

// AuthMiddleware выполняет проверку аутентификации пользователя по подписанному cookie.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware создаёт AuthMiddleware. При пустом secret ключ генерируется
// случайно и cookie перестают быть действительными после перезапуска.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
	}

	return &AuthMiddleware{
		secretKey: key,
	}
}

// Middleware проверяет cookie авторизации и кладёт model.Identity в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authCookieName)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		userID, ok := a.parseCookie(cookie.Value)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), model.Identity{
			UserID:        userID,
			Authenticated: true,
		})))
	})
}

// SetAuthCookie устанавливает cookie авторизации для указанного идентификатора пользователя.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, userID int64) {
	value := a.signUserID(userID)

	cookie := &http.Cookie{
		Name:     authCookieName,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(authCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

func (a *AuthMiddleware) signUserID(userID int64) string {
	idStr := strconv.FormatInt(userID, 10)
	return idStr + "." + hex.EncodeToString(a.signature(idStr))
}

func (a *AuthMiddleware) signature(idStr string) []byte {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(idStr))
	return mac.Sum(nil)
}

func (a *AuthMiddleware) parseCookie(cookieValue string) (int64, bool) {
	idStr, sigHex, ok := strings.Cut(cookieValue, ".")
	if !ok {
		return 0, false
	}

	sig, err := hex.DecodeString(sigHex)
	if err != nil || !hmac.Equal(sig, a.signature(idStr)) {
		return 0, false
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}

	return id, true
}

// ClearAuthCookie удаляет cookie авторизации.
func (a *AuthMiddleware) ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// WithIdentity возвращает контекст с личностью пользователя.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext возвращает личность пользователя запроса.
// Без cookie авторизации пользователь считается неаутентифицированным.
func IdentityFromContext(ctx context.Context) model.Identity {
	id, _ := ctx.Value(identityKey).(model.Identity)
	return id
}

// GetUserIDFromContext извлекает идентификатор аутентифицированного пользователя.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	id := IdentityFromContext(ctx)
	return id.UserID, id.Authenticated
}
