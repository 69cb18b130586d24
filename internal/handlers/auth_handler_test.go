package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"authcore/internal/models"
	"authcore/internal/services"
)

type stubLogin struct {
	res *models.AuthResult
	err error
}

func (s stubLogin) Login(context.Context, string, string, string) (*models.AuthResult, error) {
	return s.res, s.err
}

func (s stubLogin) Refresh(context.Context, string) (*models.AuthResult, error) {
	return s.res, s.err
}

type stubPhone struct{ err error }

func (s stubPhone) RequestCode(context.Context, string) error { return s.err }
func (s stubPhone) VerifyCode(context.Context, string, string) (*models.AuthResult, error) {
	return nil, s.err
}

type stubReset struct{ err error }

func (s stubReset) RequestReset(context.Context, string) error          { return s.err }
func (s stubReset) ResetPassword(context.Context, string, string) error { return s.err }

type stubRegister struct{ err error }

func (s stubRegister) Register(context.Context, string, string, string, string) (*models.AuthResult, error) {
	return nil, s.err
}

func sampleResult() *models.AuthResult {
	email := "amy@example.com"
	return &models.AuthResult{
		User: &models.User{ID: "u-1", Name: "Amy", Email: &email},
		Tokens: models.TokenPair{
			AccessToken:     "access",
			RefreshToken:    "refresh",
			AccessExpiresAt: time.Date(2026, 5, 1, 12, 15, 0, 0, time.UTC),
		},
	}
}

func newAuthRouter(h *AuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", h.Login)
	r.POST("/register", h.Register)
	r.POST("/phone/request-otp", h.RequestPhoneCode)
	r.POST("/phone/verify", h.VerifyPhoneCode)
	r.POST("/forgot", h.ForgotPassword)
	r.POST("/reset", h.ResetPassword)
	r.POST("/refresh", h.RefreshToken)
	return r
}

func postJSON(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginSuccessBody(t *testing.T) {
	h := NewAuthHandler(stubLogin{res: sampleResult()}, nil, nil, nil, nil, nil)
	w := postJSON(newAuthRouter(h), "/login", models.LoginRequest{Email: "amy@example.com", Password: "x"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var body AuthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.User.ID != "u-1" || body.Tokens.AccessToken != "access" || body.Tokens.RefreshToken != "refresh" {
		t.Fatalf("body = %+v", body)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("password")) {
		t.Fatalf("response leaks password fields: %s", w.Body.String())
	}
}

func TestLoginErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantFlag   string
	}{
		{fmt.Errorf("%w: email is malformed", services.ErrValidation), http.StatusBadRequest, ""},
		{services.ErrInvalidCredentials, http.StatusUnauthorized, ""},
		{services.ErrSecondFactorRequired, http.StatusUnauthorized, "second_factor_required"},
		{services.ErrInvalidSecondFactor, http.StatusForbidden, ""},
		{errors.New("connection refused"), http.StatusInternalServerError, ""},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, ""},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := NewAuthHandler(stubLogin{err: tt.err}, nil, nil, nil, nil, nil)
			w := postJSON(newAuthRouter(h), "/login", models.LoginRequest{Email: "a@b.co", Password: "x"})
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body map[string]any
			_ = json.Unmarshal(w.Body.Bytes(), &body)
			if tt.wantFlag != "" && body[tt.wantFlag] != true {
				t.Fatalf("missing %s flag: %v", tt.wantFlag, body)
			}
			if tt.wantStatus == http.StatusInternalServerError && body["error"] != "internal server error" {
				t.Fatalf("internal error leaked: %v", body)
			}
		})
	}
}

func TestLoginRequiresBody(t *testing.T) {
	h := NewAuthHandler(stubLogin{res: sampleResult()}, nil, nil, nil, nil, nil)
	w := postJSON(newAuthRouter(h), "/login", map[string]string{"email": "a@b.co"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestFlowEndpointsStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		h          *AuthHandler
		path       string
		body       any
		wantStatus int
	}{
		{"otp requested", NewAuthHandler(nil, stubPhone{}, nil, nil, nil, nil),
			"/phone/request-otp", models.PhoneCodeRequest{Phone: "+966555000001"}, http.StatusAccepted},
		{"otp rejected", NewAuthHandler(nil, stubPhone{err: services.ErrInvalidOrExpiredCode}, nil, nil, nil, nil),
			"/phone/verify", models.PhoneVerifyRequest{Phone: "+966555000001", Code: "123456"}, http.StatusUnauthorized},
		{"forgot always accepted", NewAuthHandler(nil, nil, stubReset{}, nil, nil, nil),
			"/forgot", models.ForgotPasswordRequest{Email: "ghost@example.com"}, http.StatusAccepted},
		{"reset ok", NewAuthHandler(nil, nil, stubReset{}, nil, nil, nil),
			"/reset", models.ResetPasswordRequest{Token: "t", Password: "p"}, http.StatusOK},
		{"reset stale token", NewAuthHandler(nil, nil, stubReset{err: services.ErrExpiredOrInvalidProof}, nil, nil, nil),
			"/reset", models.ResetPasswordRequest{Token: "t", Password: "p"}, http.StatusBadRequest},
		{"register duplicate", NewAuthHandler(nil, nil, nil, stubRegister{err: services.ErrDuplicateIdentity}, nil, nil),
			"/register", models.RegisterRequest{Name: "Amy", Email: "a@b.co", Phone: "+966555000001", Password: "p"}, http.StatusConflict},
		{"refresh expired", NewAuthHandler(stubLogin{err: services.ErrTokenExpired}, nil, nil, nil, nil, nil),
			"/refresh", models.RefreshRequest{RefreshToken: "r"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(newAuthRouter(tt.h), tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}
