package handlers

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quillblog/backend/internal/auth"
	"github.com/quillblog/backend/internal/errors"
	"github.com/quillblog/backend/internal/logger"
	"github.com/quillblog/backend/internal/middleware"
	"github.com/quillblog/backend/internal/util"
	"github.com/quillblog/backend/internal/verification"
	"go.uber.org/zap"
)

// accountError maps account service errors to API errors. Unknown errors
// yield nil so the caller can log them as internal failures.
func accountError(err error) *errors.APIError {
	switch {
	case stderrors.Is(err, auth.ErrPasswordMismatch):
		return errors.ValidationError("password2", "passwords do not match")
	case stderrors.Is(err, auth.ErrPasswordTooShort):
		return errors.ValidationError("password1", fmt.Sprintf("password must be at least %d characters", auth.MinPasswordLength))
	case stderrors.Is(err, auth.ErrUsernameExists):
		return errors.ValidationError("username", "username already taken")
	case stderrors.Is(err, auth.ErrEmailExists):
		return errors.ValidationError("email", "email already exists")
	case stderrors.Is(err, auth.ErrInvalidCredentials):
		return errors.Unauthorized("username or password is incorrect")
	case stderrors.Is(err, auth.ErrUserInactive):
		return errors.Forbidden("account is not activated")
	case stderrors.Is(err, auth.ErrEmailNotFound):
		return errors.ValidationError("email", "email does not exist")
	case stderrors.Is(err, verification.ErrCodeMismatch):
		return errors.ValidationError("code", "verification code error")
	case stderrors.Is(err, auth.ErrInvalidSign):
		return errors.Forbidden("invalid activation signature")
	case stderrors.Is(err, auth.ErrUserNotFound):
		return errors.NotFound("user")
	case stderrors.Is(err, auth.ErrInvalidToken), stderrors.Is(err, auth.ErrTokenRevoked):
		return errors.Unauthorized("invalid token")
	}
	return nil
}

func respondAccountError(c *gin.Context, msg string, err error) {
	if apiErr := accountError(err); apiErr != nil {
		util.RespondWithAPIError(c, apiErr)
		return
	}
	util.RespondInternalError(c, msg, err)
}

func bindError(c *gin.Context, err error) {
	util.RespondWithAPIError(c, errors.BadRequest("invalid request body").WithDetails(err.Error()))
}

// invalidateSidebar drops the cached sidebar so the next page shows the
// current user state. Failure only costs a stale sidebar.
func (h *Handlers) invalidateSidebar(c *gin.Context) {
	if err := h.sidebar.Invalidate(c.Request.Context()); err != nil {
		logger.Log.Warn("Failed to invalidate sidebar cache", zap.Error(err))
	}
}

// Register creates an inactive account and sends the activation email
// POST /register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		respondAccountError(c, "Registration failed", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":     user.ToPublic(),
		"redirect": fmt.Sprintf("/account-result?type=%s&id=%d", auth.ResultRegister, user.ID),
	})
}

// Login checks credentials, sets the session cookie and returns the token
// POST /login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		respondAccountError(c, "Login failed", err)
		return
	}

	maxAge := int(time.Until(resp.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, resp.Token, maxAge, "/", "", c.Request.TLS != nil, true)
	h.invalidateSidebar(c)

	logger.Log.Info("User logged in", logger.WithUserID(resp.User.ID), logger.WithIP(c.ClientIP()))
	c.JSON(http.StatusOK, resp)
}

// Logout revokes the current session token
// POST /logout
func (h *Handlers) Logout(c *gin.Context) {
	value, _ := c.Get(util.ContextClaims)
	claims, _ := value.(*auth.Claims)

	if err := h.auth.Logout(c.Request.Context(), claims); err != nil {
		respondAccountError(c, "Logout failed", err)
		return
	}

	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	h.invalidateSidebar(c)

	c.JSON(http.StatusOK, gin.H{"message": "logged out", "redirect": "/login"})
}

// AccountResult reports registration results and activates accounts from
// emailed links
// GET /account-result?type=&id=&sign=
func (h *Handlers) AccountResult(c *gin.Context) {
	id, err := util.ParseUint(c.Query("id"))
	if err != nil || id == 0 {
		util.RespondValidationError(c, "id", "invalid user id")
		return
	}

	result, err := h.auth.AccountResult(c.Request.Context(), c.Query("type"), id, c.Query("sign"))
	if err != nil {
		respondAccountError(c, "Account result failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ForgetPassword sets a new password using an emailed verification code
// POST /forget-password
func (h *Handlers) ForgetPassword(c *gin.Context) {
	var req auth.ForgetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	// Whitespace around a pasted code is dropped before the exact match
	req.Code = strings.TrimSpace(req.Code)

	if err := h.auth.ForgetPassword(c.Request.Context(), req); err != nil {
		// Field names follow the reset form
		if stderrors.Is(err, auth.ErrPasswordMismatch) {
			util.RespondValidationError(c, "new_password2", "passwords do not match")
			return
		}
		if stderrors.Is(err, auth.ErrPasswordTooShort) {
			util.RespondValidationError(c, "new_password1", fmt.Sprintf("password must be at least %d characters", auth.MinPasswordLength))
			return
		}
		respondAccountError(c, "Password reset failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated", "redirect": "/login"})
}

// ForgetPasswordCode emails a verification code to a registered address
// POST /forget-password-code
func (h *Handlers) ForgetPasswordCode(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithAPIError(c, errors.BadRequest("email error"))
		return
	}

	if err := h.auth.SendForgetPasswordCode(c.Request.Context(), req.Email); err != nil {
		if stderrors.Is(err, auth.ErrEmailNotFound) {
			util.RespondBadRequest(c, "email does not exist")
			return
		}
		respondAccountError(c, "Failed to send verification code", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}
