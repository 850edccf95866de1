package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datashield/internal/domain"
)

func testSigner(t *testing.T) *TokenSigner {
	t.Helper()
	signer, err := NewTokenSigner("test-secret", time.Hour)
	require.NoError(t, err)
	return signer
}

// echoPrincipal reports the authenticated principal back for assertions.
func echoPrincipal() (http.Handler, *domain.ContextPrincipal) {
	captured := &domain.ContextPrincipal{}
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := domain.PrincipalFromContext(r.Context()); ok {
			*captured = p
		}
		w.WriteHeader(http.StatusOK)
	})
	return h, captured
}

func TestAuthenticate_ValidToken(t *testing.T) {
	signer := testSigner(t)
	inner, captured := echoPrincipal()
	handler := Authenticate(signer)(inner)

	token, err := signer.Issue("alice", domain.RoleAnalyst)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", captured.Name)
	assert.Equal(t, domain.RoleAnalyst, captured.Role)
}

func TestAuthenticate_Rejects(t *testing.T) {
	signer := testSigner(t)
	inner, _ := echoPrincipal()
	handler := Authenticate(signer)(inner)

	cases := map[string]string{
		"no header":     "",
		"not bearer":    "Basic abc123",
		"invalid token": "Bearer not.a.token",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "unauthorized")
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	inner, _ := echoPrincipal()
	handler := RequireAdmin(inner)

	cases := []struct {
		name string
		role string
		want int
	}{
		{"admin passes", domain.RoleAdmin, http.StatusOK},
		{"analyst forbidden", domain.RoleAnalyst, http.StatusForbidden},
		{"viewer forbidden", domain.RoleViewer, http.StatusForbidden},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			ctx := domain.WithPrincipal(req.Context(), domain.ContextPrincipal{Name: "x", Role: c.role})
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req.WithContext(ctx))
			assert.Equal(t, c.want, rec.Code)
		})
	}

	t.Run("no principal", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
