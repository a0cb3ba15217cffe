package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"lumina_backend/internal/feature/auth/identity"
	"lumina_backend/internal/feature/auth/usecase"
	jwtmw "lumina_backend/internal/platform/jwt"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// mockAuthUsecase is a mock implementation of the AuthUsecase interface.
type mockAuthUsecase struct {
	SignupFunc  func(ctx context.Context, email, password, name string) error
	LoginFunc   func(ctx context.Context, email, password string, client usecase.ClientInfo) (usecase.TokenPair, error)
	RefreshFunc func(ctx context.Context, token string, client usecase.ClientInfo) (usecase.TokenPair, error)
	LogoutFunc  func(ctx context.Context, sessionID string) error

	LogoutAllFunc func(ctx context.Context, userID string) (int, error)
}

func (m *mockAuthUsecase) Signup(ctx context.Context, email, password, name string) error {
	if m.SignupFunc != nil {
		return m.SignupFunc(ctx, email, password, name)
	}
	return nil
}

func (m *mockAuthUsecase) Login(ctx context.Context, email, password string, client usecase.ClientInfo) (usecase.TokenPair, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, client)
	}
	return usecase.TokenPair{}, usecase.ErrInvalidCredentials
}

func (m *mockAuthUsecase) Refresh(ctx context.Context, token string, client usecase.ClientInfo) (usecase.TokenPair, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, token, client)
	}
	return usecase.TokenPair{}, usecase.ErrInvalidRefreshToken
}

func (m *mockAuthUsecase) Logout(ctx context.Context, sessionID string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthUsecase) LogoutAll(ctx context.Context, userID string) (int, error) {
	if m.LogoutAllFunc != nil {
		return m.LogoutAllFunc(ctx, userID)
	}
	return 0, nil
}

// mockCurrentUser is a mock implementation of the CurrentUser interface.
type mockCurrentUser struct {
	users map[string]identity.User
}

func (m *mockCurrentUser) Current(ctx context.Context, sessionID string) (identity.User, error) {
	u, ok := m.users[sessionID]
	if !ok {
		return identity.User{}, usecase.ErrSessionRevoked
	}
	return u, nil
}

func setupRouter(auth AuthUsecase, users CurrentUser) *gin.Engine {
	h := NewAuthHandler(auth, users)
	r := gin.New()
	r.POST("/signup", h.Signup)
	r.POST("/login", h.Login)
	r.POST("/refresh", h.Refresh)
	authed := r.Group("/", func(c *gin.Context) {
		c.Set(jwtmw.ContextUserID, "user-1")
		c.Set(jwtmw.ContextSessionID, "sess-1")
		c.Next()
	})
	authed.POST("/logout", h.Logout)
	authed.POST("/logout/all", h.LogoutAll)
	authed.GET("/me", h.Me)
	return r
}

func post(r *gin.Engine, path string, body gin.H) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_Signup(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    gin.H
		signupFunc     func(ctx context.Context, email, password, name string) error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "success: user registration",
			requestBody: gin.H{"email": "test@example.com", "password": "password123", "name": "Test"},
			signupFunc: func(ctx context.Context, email, password, name string) error {
				if name != "Test" {
					return errors.New("name not passed")
				}
				return nil
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `{"message":"ok"}`,
		},
		{
			name:           "failure: invalid email address",
			requestBody:    gin.H{"email": "invalid-email", "password": "password123"},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"email must be a valid email address"}`,
		},
		{
			name:           "failure: short password",
			requestBody:    gin.H{"email": "test@example.com", "password": "short"},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"password must be at least 8 characters"}`,
		},
		{
			name:           "failure: duplicate email",
			requestBody:    gin.H{"email": "existing@example.com", "password": "password123"},
			signupFunc:     func(ctx context.Context, email, password, name string) error { return usecase.ErrEmailAlreadyExists },
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"error":"signup failed"}`,
		},
		{
			name:           "failure: storage error",
			requestBody:    gin.H{"email": "new@example.com", "password": "password123"},
			signupFunc:     func(ctx context.Context, email, password, name string) error { return errors.New("db down") },
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"signup failed"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupRouter(&mockAuthUsecase{SignupFunc: tt.signupFunc}, &mockCurrentUser{})

			w := post(r, "/signup", tt.requestBody)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	pair := usecase.TokenPair{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 900}

	tests := []struct {
		name           string
		requestBody    gin.H
		loginFunc      func(ctx context.Context, email, password string, client usecase.ClientInfo) (usecase.TokenPair, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "success: user login",
			requestBody: gin.H{"email": "test@example.com", "password": "password123"},
			loginFunc: func(ctx context.Context, email, password string, client usecase.ClientInfo) (usecase.TokenPair, error) {
				return pair, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"access_token":"access","refresh_token":"refresh","expires_in":900}`,
		},
		{
			name:           "failure: missing password",
			requestBody:    gin.H{"email": "test@example.com"},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"password is required"}`,
		},
		{
			name:           "failure: invalid credentials",
			requestBody:    gin.H{"email": "test@example.com", "password": "wrong"},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"error":"invalid email or password"}`,
		},
		{
			name:        "failure: storage error",
			requestBody: gin.H{"email": "test@example.com", "password": "password123"},
			loginFunc: func(ctx context.Context, email, password string, client usecase.ClientInfo) (usecase.TokenPair, error) {
				return usecase.TokenPair{}, errors.New("db down")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"login failed"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupRouter(&mockAuthUsecase{LoginFunc: tt.loginFunc}, &mockCurrentUser{})

			w := post(r, "/login", tt.requestBody)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"success", nil, http.StatusOK},
		{"revoked", usecase.ErrSessionRevoked, http.StatusUnauthorized},
		{"expired", usecase.ErrSessionExpired, http.StatusUnauthorized},
		{"storage error", errors.New("redis down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &mockAuthUsecase{RefreshFunc: func(ctx context.Context, token string, client usecase.ClientInfo) (usecase.TokenPair, error) {
				return usecase.TokenPair{AccessToken: "a", RefreshToken: "r"}, tt.err
			}}

			w := post(setupRouter(uc, &mockCurrentUser{}), "/refresh", gin.H{"refresh_token": "token"})

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}

	w := post(setupRouter(&mockAuthUsecase{}, &mockCurrentUser{}), "/refresh", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_LogoutAndMe(t *testing.T) {
	var loggedOut string
	uc := &mockAuthUsecase{LogoutFunc: func(ctx context.Context, sessionID string) error {
		loggedOut = sessionID
		return nil
	}}
	users := &mockCurrentUser{users: map[string]identity.User{
		"sess-1": {ID: "user-1", Email: "a@b.c", Name: "Journaler", CreatedAt: 1717232400000},
	}}
	r := setupRouter(uc, users)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"user-1","email":"a@b.c","name":"Journaler","created_at":1717232400000}`, w.Body.String())

	w = post(r, "/logout", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "sess-1", loggedOut)

	// セッションが解決できなければ401
	r = setupRouter(uc, &mockCurrentUser{})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_LogoutAll(t *testing.T) {
	tests := []struct {
		name           string
		logoutAllFunc  func(ctx context.Context, userID string) (int, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success: revokes every session of the user",
			logoutAllFunc: func(ctx context.Context, userID string) (int, error) {
				if userID != "user-1" {
					return 0, errors.New("wrong user")
				}
				return 3, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"revoked":3}`,
		},
		{
			name: "failure: storage error",
			logoutAllFunc: func(ctx context.Context, userID string) (int, error) {
				return 0, errors.New("connection refused")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"logout failed"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &mockAuthUsecase{LogoutAllFunc: tt.logoutAllFunc}

			w := post(setupRouter(uc, &mockCurrentUser{}), "/logout/all", nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}
