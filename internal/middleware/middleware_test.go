package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/etests/etests-backend/internal/model"
	"github.com/etests/etests-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type stubAuth struct {
	claims *service.Claims
	err    error
}

func (s stubAuth) Authenticate(context.Context, string) (*service.Claims, error) {
	return s.claims, s.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequireAuth(t *testing.T) {
	student := &service.Claims{UserID: uuid.New(), Role: model.RoleStudent}

	tests := []struct {
		name     string
		header   string
		auth     stubAuth
		role     model.Role
		wantCode int
		wantBody string
	}{
		{name: "missing token", wantCode: http.StatusUnauthorized, wantBody: "TOKEN_REQUIRED"},
		{name: "wrong scheme", header: "Basic abc", wantCode: http.StatusUnauthorized, wantBody: "TOKEN_REQUIRED"},
		{name: "invalid", header: "Bearer x", auth: stubAuth{err: service.ErrTokenInvalid}, wantCode: http.StatusUnauthorized, wantBody: "TOKEN_INVALID"},
		{name: "expired", header: "Bearer x", auth: stubAuth{err: service.ErrTokenExpired}, wantCode: http.StatusUnauthorized, wantBody: "TOKEN_EXPIRED"},
		{name: "stale session", header: "Bearer x", auth: stubAuth{err: service.ErrSessionInvalidated}, wantCode: http.StatusUnauthorized, wantBody: "SESSION_INVALIDATED"},
		{name: "disabled", header: "Bearer x", auth: stubAuth{err: service.ErrAccountDisabled}, wantCode: http.StatusForbidden, wantBody: "ACCOUNT_DISABLED"},
		{name: "wrong role", header: "Bearer x", auth: stubAuth{claims: student}, role: model.RoleTeacher, wantCode: http.StatusForbidden, wantBody: "TEACHER_ACCESS_ONLY"},
		{name: "ok", header: "bearer x", auth: stubAuth{claims: student}, role: model.RoleStudent, wantCode: http.StatusOK, wantBody: student.UserID.String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			role := tt.role
			if role == "" {
				role = model.RoleStudent
			}
			r.GET("/", RequireAuth(tt.auth), RequireRole(role), func(c *gin.Context) {
				c.String(http.StatusOK, GetClaims(c).UserID.String())
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want it to contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRequireWSAuthReadsQuery(t *testing.T) {
	claims := &service.Claims{UserID: uuid.New(), Role: model.RoleStudent}
	r := gin.New()
	r.GET("/ws", RequireWSAuth(stubAuth{claims: claims}), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("without token: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws?token=abc", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("with token: status = %d", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests must pass")
	}
	if rl.Allow("a") {
		t.Error("third request within the interval must be limited")
	}
	if !rl.Allow("b") {
		t.Error("other keys have their own bucket")
	}

	now = now.Add(61 * time.Second)
	if !rl.Allow("a") {
		t.Error("bucket must refill after the interval")
	}

	now = now.Add(10 * time.Minute)
	rl.cleanup()
	if len(rl.visitors) != 0 {
		t.Errorf("idle visitors kept: %d", len(rl.visitors))
	}
}

func TestBrotli(t *testing.T) {
	long := strings.Repeat("answer-blind ", 200)

	r := gin.New()
	r.Use(Brotli())
	r.GET("/long", func(c *gin.Context) { c.String(http.StatusOK, long) })
	r.GET("/short", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	tests := []struct {
		path     string
		accept   string
		wantBr   bool
		wantBody string
	}{
		{path: "/long", accept: "gzip, br", wantBr: true, wantBody: long},
		{path: "/long", accept: "gzip", wantBody: long},
		{path: "/short", accept: "br", wantBody: "ok"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		req.Header.Set("Accept-Encoding", tt.accept)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		gotBr := rec.Header().Get("Content-Encoding") == "br"
		if gotBr != tt.wantBr {
			t.Errorf("%s (%s): br = %v, want %v", tt.path, tt.accept, gotBr, tt.wantBr)
			continue
		}

		var body io.Reader = rec.Body
		if gotBr {
			body = brotli.NewReader(rec.Body)
		}
		got, err := io.ReadAll(body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if string(got) != tt.wantBody {
			t.Errorf("%s (%s): body mismatch, got %d bytes", tt.path, tt.accept, len(got))
		}
	}
}
