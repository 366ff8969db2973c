package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/domain"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/identity"
)

func TestBearerToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"BEARER  abc ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"abc", ""},
	}
	for _, c := range cases {
		if got := bearerToken(c.in); got != c.want {
			t.Fatalf("bearerToken(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTagSession(t *testing.T) {
	gin.SetMode(gin.TestMode)

	resolves := 0
	resolve := func(_ context.Context, token string) (identity.Session, error) {
		resolves++
		if token != "good" {
			return identity.Session{}, errors.New("bad token")
		}
		return identity.Session{UID: "p1", Role: domain.RolePartner, BusinessID: "b1"}, nil
	}

	r := gin.New()
	r.Use(TagSession(resolve))
	r.GET("/tagged", func(c *gin.Context) {
		if sess, ok := SessionFrom(c); ok {
			c.String(http.StatusOK, sess.UID)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	// RequireSession after TagSession must reuse the stashed session.
	r.GET("/enforced", RequireSession(resolve), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	t.Run("tags valid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/tagged", nil)
		req.Header.Set("Authorization", "Bearer good")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK || w.Body.String() != "p1" {
			t.Fatalf("expected tagged p1, got %d %q", w.Code, w.Body.String())
		}
	})

	t.Run("proceeds untagged without token", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tagged", nil))
		if w.Code != http.StatusOK || w.Body.String() != "anonymous" {
			t.Fatalf("expected anonymous pass-through, got %d %q", w.Code, w.Body.String())
		}
	})

	t.Run("proceeds untagged on bad token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/tagged", nil)
		req.Header.Set("Authorization", "Bearer nope")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK || w.Body.String() != "anonymous" {
			t.Fatalf("expected anonymous pass-through, got %d %q", w.Code, w.Body.String())
		}
	})

	t.Run("single resolve through both middlewares", func(t *testing.T) {
		resolves = 0
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/enforced", nil)
		req.Header.Set("Authorization", "Bearer good")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if resolves != 1 {
			t.Fatalf("expected 1 resolve, got %d", resolves)
		}
	})
}

func TestRequireSession(t *testing.T) {
	gin.SetMode(gin.TestMode)

	resolve := func(_ context.Context, token string) (identity.Session, error) {
		if token != "good" {
			return identity.Session{}, errors.New("bad token")
		}
		return identity.Session{UID: "u1", Role: domain.RoleEndUser}, nil
	}

	r := gin.New()
	r.Use(RequireSession(resolve))
	r.GET("/me", func(c *gin.Context) {
		sess, ok := SessionFrom(c)
		if !ok || sess.UID != "u1" {
			t.Fatalf("session not stashed: %+v ok=%v", sess, ok)
		}
		c.Status(http.StatusOK)
	})

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("bad token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer nope")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("good token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer good")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})
}
