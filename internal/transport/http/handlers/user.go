package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clx1415926/taobei-app/internal/repository"
	"github.com/clx1415926/taobei-app/internal/transport/http/middleware"
	"github.com/clx1415926/taobei-app/internal/usecase"
)

// UserHandler exposes the authenticated user's profile.
type UserHandler struct {
	auth     *usecase.AuthService
	sessions *usecase.SessionService
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(auth *usecase.AuthService, sessions *usecase.SessionService) *UserHandler {
	return &UserHandler{auth: auth, sessions: sessions}
}

// RegisterRoutes binds user routes under the supplied group.
func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/me", middleware.RequireAuth(h.sessions), h.me)
}

// Me godoc
// @Summary Fetch the current user's profile
// @Tags User
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserProfileResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/user/me [get]
func (h *UserHandler) me(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	user, err := h.auth.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
			{Err: repository.ErrUnavailable, Status: http.StatusServiceUnavailable, Message: "service temporarily unavailable"},
		}, http.StatusInternalServerError, "failed to load profile")
		return
	}

	c.JSON(http.StatusOK, UserProfileResponse{
		ID:          user.ID,
		Phone:       user.PhoneNumber,
		Status:      string(user.Status),
		HasPassword: user.HasPassword(),
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	})
}
