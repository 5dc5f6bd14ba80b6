package mcp

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func guardedRouter(cfg HTTPHandlerConfig, called *bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/mcp",
		bearerAuth(cfg.AuthToken),
		rateLimit(newKeyedLimiter(cfg.RateLimitPerMin)),
		bodyLimit(cfg.MaxBodyBytes),
		func(c *gin.Context) {
			*called = true
			if _, err := c.GetRawData(); err != nil {
				c.Status(http.StatusRequestEntityTooLarge)
				return
			}
			c.Status(http.StatusOK)
		},
	)
	return r
}

func post(r http.Handler, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.RemoteAddr = "127.0.0.1:1234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBearerAuthRejectsMissingOrBadToken(t *testing.T) {
	called := false
	r := guardedRouter(HTTPHandlerConfig{AuthToken: "secret", RateLimitPerMin: 60}, &called)

	if w := post(r, "", "{}"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w := post(r, "wrong", "{}"); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if called {
		t.Fatal("expected handler not to run for rejected requests")
	}
}

func TestBearerAuthAllowsValidToken(t *testing.T) {
	called := false
	r := guardedRouter(HTTPHandlerConfig{AuthToken: "secret", RateLimitPerMin: 60}, &called)

	if w := post(r, "secret", "{}"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !called {
		t.Fatal("expected wrapped handler to be invoked")
	}
}

func TestEmptyServerTokenRejectsEveryone(t *testing.T) {
	called := false
	r := guardedRouter(HTTPHandlerConfig{}, &called)
	if w := post(r, "anything", "{}"); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without a configured token, got %d", w.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	called := false
	r := guardedRouter(HTTPHandlerConfig{AuthToken: "secret", RateLimitPerMin: 1}, &called)

	if w := post(r, "secret", "{}"); w.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", w.Code)
	}
	if w := post(r, "secret", "{}"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be rate-limited, got %d", w.Code)
	}
}

func TestBodyLimit(t *testing.T) {
	called := false
	r := guardedRouter(HTTPHandlerConfig{AuthToken: "secret", MaxBodyBytes: 8}, &called)
	if w := post(r, "secret", strings.Repeat("x", 64)); w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected oversized body to be refused, got %d", w.Code)
	}
}

func TestKeyedLimiterSeparatesCallers(t *testing.T) {
	l := newKeyedLimiter(1)
	if !l.Allow("a|127.0.0.1") {
		t.Fatal("expected first call for a to pass")
	}
	if l.Allow("a|127.0.0.1") {
		t.Fatal("expected second call for a to be limited")
	}
	if !l.Allow("b|127.0.0.1") {
		t.Fatal("expected b to have its own bucket")
	}
}

func TestCallerKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/mcp", nil)
	c.Request.RemoteAddr = "10.0.0.1:5555"
	if got := callerKey(c); got != "10.0.0.1" {
		t.Fatalf("expected host-only key, got %q", got)
	}
	c.Request.Header.Set("Authorization", "Bearer tok")
	if got := callerKey(c); got != "tok|10.0.0.1" {
		t.Fatalf("expected token key, got %q", got)
	}
}
