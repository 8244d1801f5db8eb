package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clx1415926/taobei-app/internal/core/domain"
	"github.com/clx1415926/taobei-app/internal/infra/telemetry"
	"github.com/clx1415926/taobei-app/internal/repository"
	"github.com/clx1415926/taobei-app/internal/transport/http/middleware"
	"github.com/clx1415926/taobei-app/internal/usecase"
)

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	auth      *usecase.AuthService
	codes     *usecase.VerificationCodeService
	sessions  *usecase.SessionService
	telemetry *telemetry.Provider
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(
	auth *usecase.AuthService,
	codes *usecase.VerificationCodeService,
	sessions *usecase.SessionService,
	provider *telemetry.Provider,
) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		codes:     codes,
		sessions:  sessions,
		telemetry: provider,
	}
}

// RegisterRoutes binds authentication routes, applying optional middleware ahead of the
// code and login handlers.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, sendCodeMiddlewares, loginMiddlewares, registerMiddlewares []gin.HandlerFunc) {
	sendCodeChain := append([]gin.HandlerFunc{}, sendCodeMiddlewares...)
	sendCodeChain = append(sendCodeChain, h.sendCode)
	r.POST("/send-code", sendCodeChain...)

	registerChain := append([]gin.HandlerFunc{}, registerMiddlewares...)
	registerChain = append(registerChain, h.register)
	r.POST("/register", registerChain...)

	codeLoginChain := append([]gin.HandlerFunc{}, loginMiddlewares...)
	codeLoginChain = append(codeLoginChain, h.loginWithCode)
	r.POST("/login/code", codeLoginChain...)

	passwordLoginChain := append([]gin.HandlerFunc{}, loginMiddlewares...)
	passwordLoginChain = append(passwordLoginChain, h.loginWithPassword)
	r.POST("/login/password", passwordLoginChain...)

	r.POST("/logout", middleware.RequireAuth(h.sessions), h.logout)
}

// sessionMetaFromRequest captures client address and user agent for the
// session record; empty values stay NULL.
func sessionMetaFromRequest(c *gin.Context) usecase.SessionMeta {
	var meta usecase.SessionMeta
	if ip := c.ClientIP(); ip != "" {
		meta.IPAddress = &ip
	}
	if ua := c.Request.UserAgent(); ua != "" {
		meta.UserAgent = &ua
	}
	return meta
}

// SendCode godoc
// @Summary Request a verification code
// @Description Issues a 6-digit code for the given phone and purpose, subject to rate limits.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body SendCodeRequest true "Send code request"
// @Success 200 {object} SendCodeResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/send-code [post]
func (h *AuthHandler) sendCode(c *gin.Context) {
	var req SendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid send-code payload"))
		return
	}

	purpose := domain.CodePurpose(strings.TrimSpace(req.Purpose))

	result, err := h.codes.SendCode(c.Request.Context(), strings.TrimSpace(req.Phone), purpose, c.ClientIP())
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidPhoneNumber, Status: http.StatusBadRequest, Message: "invalid phone number"},
			{Err: usecase.ErrInvalidPurpose, Status: http.StatusBadRequest, Message: "invalid code purpose"},
			{Err: usecase.ErrDailyLimitExceeded, Status: http.StatusTooManyRequests, Message: "daily code limit reached"},
			{Err: usecase.ErrTooManyRequests, Status: http.StatusTooManyRequests, Message: "please wait before requesting another code"},
			{Err: repository.ErrUnavailable, Status: http.StatusServiceUnavailable, Message: "service temporarily unavailable"},
		}, http.StatusInternalServerError, "failed to send verification code")
		return
	}

	h.telemetry.ObserveCodeIssued()

	c.JSON(http.StatusOK, SendCodeResponse{
		Message:          "verification code sent",
		CountdownSeconds: result.CountdownSeconds,
	})
}

// Register godoc
// @Summary Register a new account by phone
// @Description Creates an account after code verification. Registering an existing phone
// @Description with a valid code returns credentials with already_registered set.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 200 {object} LoginResponse "Phone already registered; logged in"
// @Success 201 {object} LoginResponse "Account created"
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	meta := sessionMetaFromRequest(c)

	result, err := h.auth.Register(c.Request.Context(), strings.TrimSpace(req.Phone), strings.TrimSpace(req.Code), req.AgreedToTerms, meta)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrTermsNotAccepted, Status: http.StatusBadRequest, Message: "terms must be accepted"},
			{Err: usecase.ErrInvalidPhoneNumber, Status: http.StatusBadRequest, Message: "invalid phone number"},
			{Err: usecase.ErrInvalidCode, Status: http.StatusUnauthorized, Message: "invalid verification code"},
			{Err: usecase.ErrExpiredCode, Status: http.StatusUnauthorized, Message: "verification code expired"},
			{Err: repository.ErrUnavailable, Status: http.StatusServiceUnavailable, Message: "service temporarily unavailable"},
		}, http.StatusInternalServerError, "failed to register")
		return
	}

	resp := newLoginResponse(&result.LoginResult)
	status := http.StatusCreated
	if result.AlreadyRegistered {
		resp.AlreadyUser = true
		status = http.StatusOK
	} else {
		resp.IsNewUser = true
	}

	c.JSON(status, resp)
}

// LoginWithCode godoc
// @Summary Authenticate with a verification code
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body CodeLoginRequest true "Code login request"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/login/code [post]
func (h *AuthHandler) loginWithCode(c *gin.Context) {
	var req CodeLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	meta := sessionMetaFromRequest(c)

	result, err := h.auth.LoginWithCode(c.Request.Context(), strings.TrimSpace(req.Phone), strings.TrimSpace(req.Code), c.ClientIP(), meta)
	if err != nil {
		h.telemetry.ObserveLogin("code", "failure")
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrTooManyFailedAttempts, Status: http.StatusTooManyRequests, Message: "too many failed attempts, try again later"},
			{Err: usecase.ErrPhoneNotRegistered, Status: http.StatusNotFound, Message: "phone not registered"},
			{Err: usecase.ErrInvalidCode, Status: http.StatusUnauthorized, Message: "invalid verification code"},
			{Err: usecase.ErrExpiredCode, Status: http.StatusUnauthorized, Message: "verification code expired"},
			{Err: repository.ErrUnavailable, Status: http.StatusServiceUnavailable, Message: "service temporarily unavailable"},
		}, http.StatusInternalServerError, "login failed")
		return
	}

	h.telemetry.ObserveLogin("code", "success")
	c.JSON(http.StatusOK, newLoginResponse(result))
}

// LoginWithPassword godoc
// @Summary Authenticate with a password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body PasswordLoginRequest true "Password login request"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 423 {object} ErrorResponse "Account locked"
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/login/password [post]
func (h *AuthHandler) loginWithPassword(c *gin.Context) {
	var req PasswordLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	meta := sessionMetaFromRequest(c)

	result, err := h.auth.LoginWithPassword(c.Request.Context(), strings.TrimSpace(req.Phone), req.Password, c.ClientIP(), meta)
	if err != nil {
		h.telemetry.ObserveLogin("password", "failure")
		if errors.Is(err, usecase.ErrAccountLocked) {
			h.telemetry.ObserveAccountLocked()
		}
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPhoneNotRegistered, Status: http.StatusNotFound, Message: "phone not registered"},
			{Err: usecase.ErrNoPasswordSet, Status: http.StatusBadRequest, Message: "no password set for this account"},
			{Err: usecase.ErrAccountLocked, Status: http.StatusLocked, Message: "account temporarily locked"},
			{Err: usecase.ErrInvalidPassword, Status: http.StatusUnauthorized, Message: "invalid password"},
			{Err: repository.ErrUnavailable, Status: http.StatusServiceUnavailable, Message: "service temporarily unavailable"},
		}, http.StatusInternalServerError, "login failed")
		return
	}

	h.telemetry.ObserveLogin("password", "success")
	c.JSON(http.StatusOK, newLoginResponse(result))
}

// Logout godoc
// @Summary Logout the current session
// @Description Revokes the session backing the bearer token. Revoking an already
// @Description revoked session is a quiet no-op.
// @Tags Authentication
// @Produce json
// @Success 204 {string} string ""
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) logout(c *gin.Context) {
	token, ok := middleware.GetSessionToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrMissingToken, Status: http.StatusUnauthorized, Message: "authentication required"},
		}, http.StatusInternalServerError, "failed to revoke session")
		return
	}

	c.Status(http.StatusNoContent)
}
