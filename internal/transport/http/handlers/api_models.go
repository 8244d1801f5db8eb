package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clx1415926/taobei-app/internal/core/domain"
	"github.com/clx1415926/taobei-app/internal/usecase"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// SendCodeRequest defines the payload for requesting a verification code.
type SendCodeRequest struct {
	Phone   string `json:"phone" binding:"required"`
	Purpose string `json:"purpose" binding:"required"`
}

// SendCodeResponse reports the resend countdown after a successful issuance.
type SendCodeResponse struct {
	Message          string `json:"message"`
	CountdownSeconds int    `json:"countdown_seconds"`
}

// RegisterRequest defines the account registration payload.
type RegisterRequest struct {
	Phone         string `json:"phone" binding:"required"`
	Code          string `json:"code" binding:"required"`
	AgreedToTerms bool   `json:"agreed_to_terms"`
}

// CodeLoginRequest defines the payload for code-based login.
type CodeLoginRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// PasswordLoginRequest defines the payload for password-based login.
type PasswordLoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse describes the credentials issued by a successful login.
type LoginResponse struct {
	UserID      string `json:"user_id"`
	Phone       string `json:"phone"`
	Token       string `json:"token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	IsNewUser   bool   `json:"is_new_user,omitempty"`
	AlreadyUser bool   `json:"already_registered,omitempty"`
}

// SetPasswordRequest captures a first-time password installation.
type SetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest captures a password change request body.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// ResetPasswordRequest captures a code-verified password reset.
type ResetPasswordRequest struct {
	Phone       string `json:"phone" binding:"required"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// VerifyResetCodeRequest captures the non-consuming reset pre-check payload.
type VerifyResetCodeRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// PasswordStatusResponse reports whether the account has a password credential.
type PasswordStatusResponse struct {
	HasPassword bool       `json:"has_password"`
	SetAt       *time.Time `json:"set_at,omitempty"`
}

// StrengthCheckRequest captures a password strength probe.
type StrengthCheckRequest struct {
	Password string `json:"password" binding:"required"`
}

// StrengthCheckResponse reports the scored strength verdict for UI feedback.
type StrengthCheckResponse struct {
	IsStrong       bool     `json:"is_strong"`
	Score          int      `json:"score"`
	Classification string   `json:"classification"`
	Suggestions    []string `json:"suggestions,omitempty"`
}

// UserProfileResponse describes the authenticated user's profile view.
type UserProfileResponse struct {
	ID          string     `json:"id"`
	Phone       string     `json:"phone"`
	Status      string     `json:"status"`
	HasPassword bool       `json:"has_password"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// BannerPayload describes a homepage banner slot.
type BannerPayload struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
	LinkURL  string `json:"link_url"`
}

// CategoryPayload describes a product category.
type CategoryPayload struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Icon         string `json:"icon,omitempty"`
	ProductCount int    `json:"product_count"`
}

// ProductPayload describes a product in list and detail views.
// Prices are in fen (1/100 yuan).
type ProductPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceFen    int64  `json:"price_fen"`
	OriginalFen *int64 `json:"original_fen,omitempty"`
	CategoryID  string `json:"category_id"`
	ImageURL    string `json:"image_url,omitempty"`
	SalesCount  int    `json:"sales_count"`
	Stock       int    `json:"stock"`
	IsHot       bool   `json:"is_hot"`
}

// HomepageResponse aggregates the storefront landing page data.
type HomepageResponse struct {
	Banners     []BannerPayload   `json:"banners"`
	HotProducts []ProductPayload  `json:"hot_products"`
	Categories  []CategoryPayload `json:"categories"`
}

// ProductSearchResponse is one page of search results.
type ProductSearchResponse struct {
	Items    []ProductPayload `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// CategoryListResponse wraps all categories.
type CategoryListResponse struct {
	Categories []CategoryPayload `json:"categories"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func newLoginResponse(result *usecase.LoginResult) LoginResponse {
	return LoginResponse{
		UserID:    result.UserID,
		Phone:     result.PhoneNumber,
		Token:     result.Token,
		TokenType: "Bearer",
		ExpiresIn: result.ExpiresIn,
	}
}

func newProductPayload(product domain.Product) ProductPayload {
	return ProductPayload{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		PriceFen:    product.PriceFen,
		OriginalFen: product.OriginalFen,
		CategoryID:  product.CategoryID,
		ImageURL:    product.ImageURL,
		SalesCount:  product.SalesCount,
		Stock:       product.Stock,
		IsHot:       product.IsHot,
	}
}

func newProductPayloads(products []domain.Product) []ProductPayload {
	payloads := make([]ProductPayload, 0, len(products))
	for _, product := range products {
		payloads = append(payloads, newProductPayload(product))
	}
	return payloads
}

func newCategoryPayloads(categories []domain.Category) []CategoryPayload {
	payloads := make([]CategoryPayload, 0, len(categories))
	for _, category := range categories {
		payloads = append(payloads, CategoryPayload{
			ID:           category.ID,
			Name:         category.Name,
			Icon:         category.Icon,
			ProductCount: category.ProductCount,
		})
	}
	return payloads
}

func newBannerPayloads(banners []domain.Banner) []BannerPayload {
	payloads := make([]BannerPayload, 0, len(banners))
	for _, banner := range banners {
		payloads = append(payloads, BannerPayload{
			ID:       banner.ID,
			Title:    banner.Title,
			ImageURL: banner.ImageURL,
			LinkURL:  banner.LinkURL,
		})
	}
	return payloads
}
