package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/insurai/portal/internal/auth"
	"github.com/insurai/portal/internal/middleware"
	"github.com/insurai/portal/internal/services"
	"github.com/insurai/portal/pkg/response"
)

// AuthHandler exposes login, registration and password recovery.
type AuthHandler struct {
	svc *services.AuthService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(svc *services.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	EmployeeID string `json:"employeeId"`
	Department string `json:"department"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// Login handles POST /api/auth/:role/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.svc.Login(requestContext(c), services.LoginInput{
		Role:     c.Param("role"),
		Email:    req.Email,
		Password: req.Password,
	}, iauth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	maxAge := int(time.Until(time.Unix(result.ExpiresAt, 0)).Seconds())
	middleware.SetSessionCookie(c, result.AccessToken, maxAge)
	response.SuccessWithMeta(c, http.StatusOK, result, &response.Meta{Redirect: result.HomePath})
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	message, err := h.svc.Register(requestContext(c), services.RegisterInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		EmployeeID: req.EmployeeID,
		Department: req.Department,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"message": message})
}

// ForgotPassword handles POST /api/auth/forgot-password.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	message, err := h.svc.ForgotPassword(requestContext(c), req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": message})
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	message, err := h.svc.ResetPassword(requestContext(c), req.Token, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": message})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"user":      p,
		"home_path": iauth.HomePath(p.Role),
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.svc.Logout(requestContext(c), p); err != nil {
		response.Error(c, err)
		return
	}
	middleware.ClearSessionCookie(c)
	response.SuccessWithMeta(c, http.StatusOK, gin.H{"logged_out": true}, &response.Meta{Redirect: middleware.LandingPath})
}
