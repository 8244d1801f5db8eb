package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clx1415926/taobei-app/internal/repository"
	"github.com/clx1415926/taobei-app/internal/transport/http/middleware"
	"github.com/clx1415926/taobei-app/internal/usecase"
)

// PasswordHandler exposes the password lifecycle endpoints: first-time set,
// authenticated change, code-verified reset, and the strength probe the
// client uses for live feedback while typing.
type PasswordHandler struct {
	auth      *usecase.AuthService
	passwords *usecase.PasswordService
	sessions  *usecase.SessionService
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(auth *usecase.AuthService, passwords *usecase.PasswordService, sessions *usecase.SessionService) *PasswordHandler {
	return &PasswordHandler{
		auth:      auth,
		passwords: passwords,
		sessions:  sessions,
	}
}

// RegisterRoutes binds password routes. Reset endpoints are unauthenticated
// (the code proves possession of the phone) and take their own middleware chain.
func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup, resetMiddlewares []gin.HandlerFunc) {
	authRequired := middleware.RequireAuth(h.sessions)
	r.POST("/set", authRequired, h.setPassword)
	r.POST("/change", authRequired, h.changePassword)
	r.GET("/status", authRequired, h.passwordStatus)

	r.POST("/strength", h.strengthCheck)

	verifyChain := append([]gin.HandlerFunc{}, resetMiddlewares...)
	verifyChain = append(verifyChain, h.verifyResetCode)
	r.POST("/reset/verify", verifyChain...)

	resetChain := append([]gin.HandlerFunc{}, resetMiddlewares...)
	resetChain = append(resetChain, h.resetPassword)
	r.POST("/reset", resetChain...)
}

var policyErrorCases = []ErrorCase{
	{Err: usecase.ErrWeakPassword, Status: http.StatusBadRequest, Message: "password does not meet strength requirements"},
	{Err: usecase.ErrPasswordReused, Status: http.StatusBadRequest, Message: "password was used recently, choose a different one"},
}

// SetPassword godoc
// @Summary Set a password for the first time
// @Tags Password
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SetPasswordRequest true "Set password request"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/password/set [post]
func (h *PasswordHandler) setPassword(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid set-password payload"))
		return
	}

	if err := h.auth.SetPassword(c.Request.Context(), userID, req.Password); err != nil {
		cases := append([]ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
			{Err: repository.ErrUnavailable, Status: http.StatusServiceUnavailable, Message: "service temporarily unavailable"},
		}, policyErrorCases...)
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to set password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password set"})
}

// ChangePassword godoc
// @Summary Change the password using the current one
// @Description Verifying the current password is required; a successful change
// @Description revokes every other session for the account.
// @Tags Password
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Change password request"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/password/change [post]
func (h *PasswordHandler) changePassword(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid change-password payload"))
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		cases := append([]ErrorCase{
			{Err: usecase.ErrNoPasswordSet, Status: http.StatusBadRequest, Message: "no password set for this account"},
			{Err: usecase.ErrInvalidCurrentPassword, Status: http.StatusUnauthorized, Message: "current password is incorrect"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
			{Err: repository.ErrUnavailable, Status: http.StatusServiceUnavailable, Message: "service temporarily unavailable"},
		}, policyErrorCases...)
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to change password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed"})
}

// PasswordStatus godoc
// @Summary Report whether the account has a password
// @Tags Password
// @Produce json
// @Security BearerAuth
// @Success 200 {object} PasswordStatusResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/password/status [get]
func (h *PasswordHandler) passwordStatus(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	status, err := h.auth.PasswordStatus(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
			{Err: repository.ErrUnavailable, Status: http.StatusServiceUnavailable, Message: "service temporarily unavailable"},
		}, http.StatusInternalServerError, "failed to load password status")
		return
	}

	c.JSON(http.StatusOK, PasswordStatusResponse{
		HasPassword: status.HasPassword,
		SetAt:       status.SetAt,
	})
}

// StrengthCheck godoc
// @Summary Score a candidate password
// @Description Pure scoring endpoint used for live feedback; it never persists anything.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body StrengthCheckRequest true "Strength check request"
// @Success 200 {object} StrengthCheckResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/password/strength [post]
func (h *PasswordHandler) strengthCheck(c *gin.Context) {
	var req StrengthCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid strength-check payload"))
		return
	}

	report := h.passwords.StrengthCheck(req.Password)

	c.JSON(http.StatusOK, StrengthCheckResponse{
		IsStrong:       report.IsStrong,
		Score:          report.Score,
		Classification: string(report.Classification),
		Suggestions:    report.Suggestions,
	})
}

// VerifyResetCode godoc
// @Summary Pre-check a password reset code
// @Description Validates the code without consuming it, so the client can move to
// @Description the new-password step before the actual reset call.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body VerifyResetCodeRequest true "Verify reset code request"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/password/reset/verify [post]
func (h *PasswordHandler) verifyResetCode(c *gin.Context) {
	var req VerifyResetCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verify payload"))
		return
	}

	if err := h.auth.VerifyResetCode(c.Request.Context(), strings.TrimSpace(req.Phone), strings.TrimSpace(req.Code)); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPhoneNotRegistered, Status: http.StatusNotFound, Message: "phone not registered"},
			{Err: usecase.ErrInvalidCode, Status: http.StatusUnauthorized, Message: "invalid verification code"},
			{Err: usecase.ErrExpiredCode, Status: http.StatusUnauthorized, Message: "verification code expired"},
			{Err: repository.ErrUnavailable, Status: http.StatusServiceUnavailable, Message: "service temporarily unavailable"},
		}, http.StatusInternalServerError, "failed to verify reset code")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "code verified"})
}

// ResetPassword godoc
// @Summary Reset the password with a verification code
// @Description Consumes the code, installs the new password, and revokes all
// @Description existing sessions for the account.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Reset password request"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/password/reset [post]
func (h *PasswordHandler) resetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reset payload"))
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), strings.TrimSpace(req.Phone), strings.TrimSpace(req.Code), req.NewPassword); err != nil {
		cases := append([]ErrorCase{
			{Err: usecase.ErrPhoneNotRegistered, Status: http.StatusNotFound, Message: "phone not registered"},
			{Err: usecase.ErrInvalidCode, Status: http.StatusUnauthorized, Message: "invalid verification code"},
			{Err: usecase.ErrExpiredCode, Status: http.StatusUnauthorized, Message: "verification code expired"},
			{Err: repository.ErrUnavailable, Status: http.StatusServiceUnavailable, Message: "service temporarily unavailable"},
		}, policyErrorCases...)
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to reset password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password reset"})
}
