package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/MikeMC777/tienda-ecom/internal/identity"
	"github.com/MikeMC777/tienda-ecom/internal/user"
)

func newTestRouter(t *testing.T) (*gin.Engine, *identity.Tokens) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens := identity.NewTokens("test-secret", time.Hour)
	r := gin.New()
	registerRoutes(r, user.NewService(user.NewMemRepo(), tokens))
	return r, tokens
}

func post(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterThenLogin(t *testing.T) {
	r, tokens := newTestRouter(t)

	w := post(r, "/api/user/create", `{"name":"Ana","email":"ana@example.com","password":"pw","confirmPassword":"pw"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if bytes.Contains(w.Body.Bytes(), []byte("password")) {
		t.Fatalf("password hash leaked: %s", w.Body.String())
	}

	w = post(r, "/api/user/create", `{"name":"Ana","email":"ana@example.com","password":"pw","confirmPassword":"pw"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate should be 400, status=%d body=%s", w.Code, w.Body.String())
	}

	w = post(r, "/api/user/login", `{"email":"ana@example.com","password":"pw"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Success  bool      `json:"success"`
		Message  string    `json:"message"`
		Token    string    `json:"token"`
		UserData user.User `json:"userData"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !resp.Success || resp.Message != "Login successful" || resp.Token == "" {
		t.Fatalf("unexpected login response: %+v", resp)
	}
	id, err := tokens.Verify(resp.Token)
	if err != nil || id.UserID != resp.UserData.ID {
		t.Fatalf("token does not carry the user: %+v err=%v", id, err)
	}
}

func TestLogin_Failures(t *testing.T) {
	r, _ := newTestRouter(t)
	_ = post(r, "/api/user/create", `{"name":"Ana","email":"ana@example.com","password":"pw","confirmPassword":"pw"}`)

	cases := []struct {
		body string
		msg  string
	}{
		{`{"email":"ana@example.com"}`, "Email and password are required"},
		{`{"email":"ana@example.com","password":"nope"}`, "Invalid credentials"},
		{`{"email":"ghost@example.com","password":"pw"}`, "Invalid credentials"},
	}
	for _, tc := range cases {
		w := post(r, "/api/user/login", tc.body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status=%d resp=%s", tc.body, w.Code, w.Body.String())
		}
		var env struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &env)
		if env.Message != tc.msg {
			t.Fatalf("body %s: message=%q want=%q", tc.body, env.Message, tc.msg)
		}
	}
}

func TestHealthServer(t *testing.T) {
	hs := newHealthServer()

	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: healthService})
	if err != nil || resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status=%v err=%v", resp.GetStatus(), err)
	}

	hs.Shutdown()
	resp, err = hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: healthService})
	if err != nil || resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("after shutdown status=%v err=%v", resp.GetStatus(), err)
	}
}
