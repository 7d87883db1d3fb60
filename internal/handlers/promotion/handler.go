package promotion

import (
	"context"
	"net/http"

	"github.com/kevin07696/booking-payment-service/internal/domain"
	"github.com/kevin07696/booking-payment-service/internal/handlers/respond"
	"github.com/kevin07696/booking-payment-service/internal/services/discount"
	"github.com/kevin07696/booking-payment-service/pkg/observability"
	"go.uber.org/zap"
)

// Validator prices a promotion code
type Validator interface {
	Validate(ctx context.Context, req discount.ValidationRequest) (*discount.ValidationResult, error)
}

// Handler serves promotion code validation
type Handler struct {
	validator Validator
	logger    *zap.Logger
}

// NewHandler creates a new promotion handler
func NewHandler(validator Validator, logger *zap.Logger) *Handler {
	return &Handler{validator: validator, logger: logger}
}

// Register mounts the routes on mux
func (h *Handler) Register(mux *http.ServeMux) {
	const pattern = "POST /api/v1/promotions/validate"
	mux.Handle(pattern, observability.InstrumentHandler(pattern, http.HandlerFunc(h.Validate)))
}

type validateRequest struct {
	Code     string `json:"code"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	UserID   string `json:"userId"`
}

// Validate handles POST /api/v1/promotions/validate. An inapplicable code is
// a 200 with valid=false and the reason; malformed input is a 400.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var body validateRequest
	if err := respond.Decode(w, r, &body); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	currency, ok := domain.ParseCurrency(body.Currency)
	if !ok {
		respond.Error(w, h.logger, domain.NewValidationError("currency", "unsupported currency "+body.Currency))
		return
	}

	result, err := h.validator.Validate(r.Context(), discount.ValidationRequest{
		Code:     body.Code,
		Amount:   domain.Amount(body.Amount),
		Currency: currency,
		UserID:   body.UserID,
	})
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, result)
}
