package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthMiddleware_WithValidCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		id, ok := GetUserIDFromContext(r.Context())
		if !ok {
			t.Fatalf("user id not in context")
		}
		if id != 42 {
			t.Fatalf("user id from context = %d, want 42", id)
		}
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)

	m.SetAuthCookie(w, 42)
	res := w.Result()
	resCookies := res.Cookies()
	if len(resCookies) == 0 {
		t.Fatalf("no cookies set by SetAuthCookie")
	}

	r.AddCookie(resCookies[0])

	handler := m.Middleware(next)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestAuthMiddleware_WithoutCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)

	handler := m.Middleware(next)
	handler.ServeHTTP(w, r)

	res := w.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_RejectsTamperedCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret")
	other := NewAuthMiddleware("other-secret")

	tests := []struct {
		name  string
		value string
	}{
		{"foreign signature", other.signUserID(42)},
		{"swapped id", "43." + m.signUserID(42)[3:]},
		{"no separator", "42"},
		{"bad hex", "42.zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/protected", nil)
			r.AddCookie(&http.Cookie{Name: authCookieName, Value: tt.value})
			w := httptest.NewRecorder()

			m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("next handler should not be called")
			})).ServeHTTP(w, r)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestIdentityFromContext(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := IdentityFromContext(r.Context()); id.Authenticated {
		t.Fatalf("request without cookie must be unauthenticated, got %+v", id)
	}

	m := NewAuthMiddleware("test-secret")
	r.AddCookie(&http.Cookie{Name: authCookieName, Value: m.signUserID(7)})
	m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFromContext(r.Context())
		if !id.Authenticated || id.UserID != 7 {
			t.Fatalf("unexpected identity %+v", id)
		}
	})).ServeHTTP(httptest.NewRecorder(), r)
}

func TestClearAuthCookie(t *testing.T) {
	m := NewAuthMiddleware("")
	w := httptest.NewRecorder()

	m.ClearAuthCookie(w)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	if cookies[0].Name != authCookieName || cookies[0].MaxAge >= 0 {
		t.Fatalf("cookie is not an expiring %s: %+v", authCookieName, cookies[0])
	}
}
