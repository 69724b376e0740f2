package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"campusmarket/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Register(ctx context.Context, req RegisterRequest) (*User, string, string, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, "", "", args.Error(3)
	}
	return args.Get(0).(*User), args.String(1), args.String(2), args.Error(3)
}

func (m *MockService) Login(ctx context.Context, req LoginRequest) (*User, string, string, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, "", "", args.Error(3)
	}
	return args.Get(0).(*User), args.String(1), args.String(2), args.Error(3)
}

func (m *MockService) GetByID(ctx context.Context, userID string) (*User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockService) RefreshToken(ctx context.Context, refreshToken string) (string, *User, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(1) == nil {
		return "", nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*User), args.Error(2)
}

func setupRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(svc)
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh", h.RefreshToken)
	r.GET("/me", auth.AuthMiddleware(testSecret), h.GetMe)
	return r
}

func TestHandler_Register(t *testing.T) {
	svc := new(MockService)
	req := RegisterRequest{Name: "Juan", Email: "juan@up.edu.ph", Password: "password123"}
	svc.On("Register", mock.Anything, req).Return(&User{ID: testUserID, Email: req.Email}, "access", "refresh", nil)

	body, _ := json.Marshal(req)
	w := httptest.NewRecorder()
	r := setupRouter(svc)
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body)))

	require.Equal(t, http.StatusCreated, w.Code)
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "access", resp.AccessToken)
	assert.Equal(t, testUserID, resp.User.ID)
	svc.AssertExpectations(t)
}

func TestHandler_RegisterValidation(t *testing.T) {
	svc := new(MockService)
	w := httptest.NewRecorder()
	r := setupRouter(svc)
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(`{"email":"not-an-email"}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_error")
	svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestHandler_LoginInvalidCredentials(t *testing.T) {
	svc := new(MockService)
	req := LoginRequest{Email: "juan@up.edu.ph", Password: "nope"}
	svc.On("Login", mock.Anything, req).Return(nil, "", "", ErrInvalidCredentials)

	body, _ := json.Marshal(req)
	w := httptest.NewRecorder()
	setupRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid email or password")
}

func TestHandler_GetMe(t *testing.T) {
	svc := new(MockService)
	svc.On("GetByID", mock.Anything, testUserID).Return(&User{ID: testUserID, Name: "Juan"}, nil)

	token, err := auth.GenerateAccessToken(testUserID, "juan@up.edu.ph", auth.RoleMember, testSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	setupRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Juan")
}

func TestHandler_RefreshMissingToken(t *testing.T) {
	w := httptest.NewRecorder()
	setupRouter(new(MockService)).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/refresh", bytes.NewBufferString(`{}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "refresh_token is required")
}
