package apperror

import (
	"errors"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Application Errors
// ============================================================

// Kind — машиночитаемый вид ошибки на границе запроса.
const (
	KindStructural     = "structural_error"
	KindInvalidPlan    = "invalid_plan"
	KindFloorNotFound  = "floor_not_found"
	KindQuotaExceeded  = "quota_exceeded"
	KindContextTooLong = "context_too_long"
	KindRateLimited    = "rate_limited"
	KindProvider       = "provider_error"
	KindInternal       = "internal_error"
)

// Error несет вид, стабильное человекочитаемое сообщение и HTTP-статус.
// Внутренние детали (стеки, ответы провайдера) наружу не выходят.
type Error struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Status  int      `json:"-"`
	Details []string `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

func New(kind string, status int, message string) *Error {
	return &Error{Kind: kind, Status: status, Message: message}
}

func WithDetails(kind string, status int, message string, details []string) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Details: details}
}

// From приводит произвольную ошибку к *Error; незнакомые ошибки
// становятся внутренними с нейтральным сообщением.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(KindInternal, fiber.StatusInternalServerError, "internal error")
}

// Respond пишет ошибку в fiber-ответ в едином формате.
func Respond(c fiber.Ctx, err error) error {
	appErr := From(err)
	return c.Status(appErr.Status).JSON(fiber.Map{
		"error":   appErr.Message,
		"kind":    appErr.Kind,
		"details": appErr.Details,
	})
}
