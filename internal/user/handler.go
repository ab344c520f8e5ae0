package user

import (
	"errors"
	"net/http"

	"karyalay/internal/api"
	"karyalay/internal/auth"
	"karyalay/internal/logger"
	"karyalay/internal/otp"
	"karyalay/internal/session"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// SignUp handles POST /auth/signup.
func (h *Handler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	result, err := h.service.SignUp(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			api.Error(c, http.StatusConflict, "Email already registered")
			return
		}
		logger.Error("sign up failed", "error", err)
		api.Error(c, http.StatusInternalServerError, "Failed to create account")
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	result, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			api.Error(c, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		logger.Error("login failed", "error", err)
		api.Error(c, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	c.JSON(http.StatusOK, result)
}

// RequestCode handles POST /auth/otp.
func (h *Handler) RequestCode(c *gin.Context) {
	var req CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	if err := h.service.RequestCode(c.Request.Context(), req.Email); err != nil {
		logger.Error("sign-in code request failed", "error", err)
		api.Error(c, http.StatusInternalServerError, "Failed to send sign-in code")
		return
	}

	api.Message(c, http.StatusAccepted, "Sign-in code sent")
}

// VerifyCode handles POST /auth/otp/verify.
func (h *Handler) VerifyCode(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	result, err := h.service.VerifyCode(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, otp.ErrCodeInvalid), errors.Is(err, otp.ErrCodeExpired):
			api.Error(c, http.StatusUnauthorized, err.Error())
		case errors.Is(err, otp.ErrTooManyAttempts):
			api.Error(c, http.StatusTooManyRequests, err.Error())
		default:
			logger.Error("sign-in code verification failed", "error", err)
			api.Error(c, http.StatusInternalServerError, "Failed to sign in")
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// Refresh handles POST /auth/refresh.
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Error(c, http.StatusBadRequest, "refresh_token is required")
		return
	}

	result, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			api.Error(c, http.StatusUnauthorized, "Session has ended")
		case errors.Is(err, ErrUserNotFound):
			api.Error(c, http.StatusNotFound, "User not found")
		case isTokenError(err):
			api.Error(c, http.StatusUnauthorized, "Invalid or expired refresh token")
		default:
			logger.Error("token refresh failed", "error", err)
			api.Error(c, http.StatusInternalServerError, "Failed to refresh token")
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// Session handles GET /auth/session.
func (h *Handler) Session(c *gin.Context) {
	id, ok := auth.GetIdentity(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	info, err := h.service.CurrentSession(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			api.Error(c, http.StatusUnauthorized, "Session has ended")
		case errors.Is(err, ErrUserNotFound):
			api.Error(c, http.StatusNotFound, "User not found")
		default:
			logger.Error("session lookup failed", "error", err)
			api.Error(c, http.StatusInternalServerError, "Failed to load session")
		}
		return
	}

	c.JSON(http.StatusOK, info)
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(c *gin.Context) {
	id, ok := auth.GetIdentity(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if err := h.service.Logout(c.Request.Context(), id.SessionID); err != nil {
		logger.Error("logout failed", "session_id", id.SessionID, "error", err)
		api.Error(c, http.StatusInternalServerError, "Failed to sign out")
		return
	}

	api.Message(c, http.StatusOK, "Signed out")
}

// GetMe handles GET /me.
func (h *Handler) GetMe(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	user, err := h.service.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			api.Error(c, http.StatusNotFound, "User not found")
			return
		}
		api.Error(c, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateMe handles PATCH /me.
func (h *Handler) UpdateMe(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			api.Error(c, http.StatusNotFound, "User not found")
			return
		}
		logger.Error("profile update failed", "user_id", userID, "error", err)
		api.Error(c, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	c.JSON(http.StatusOK, user)
}

func isTokenError(err error) bool {
	return errors.Is(err, auth.ErrTokenExpired) ||
		errors.Is(err, auth.ErrInvalidToken) ||
		errors.Is(err, auth.ErrInvalidTokenType)
}
