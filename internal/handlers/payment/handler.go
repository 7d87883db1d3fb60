package payment

import (
	"context"
	"net/http"
	"net/url"

	"github.com/kevin07696/booking-payment-service/internal/domain"
	"github.com/kevin07696/booking-payment-service/internal/handlers/respond"
	"github.com/kevin07696/booking-payment-service/internal/services/payment"
	"github.com/kevin07696/booking-payment-service/pkg/middleware"
	"github.com/kevin07696/booking-payment-service/pkg/observability"
	"go.uber.org/zap"
)

// PaymentService is the payment orchestrator as seen by the HTTP layer
type PaymentService interface {
	InitiatePayment(ctx context.Context, req payment.InitiateRequest) (*payment.InitiateResult, error)
	InitiateBookingPayment(ctx context.Context, req payment.BookingPaymentRequest) (*payment.BookingPaymentResult, error)
	ProcessDirect(ctx context.Context, req payment.DirectPaymentRequest) (*payment.DirectPaymentResult, error)
	RefundBooking(ctx context.Context, req payment.BookingRefundRequest) (*payment.BookingRefundResult, error)
	TransactionStatus(ctx context.Context, orderID string) (*payment.TransactionStatusResult, error)
	ProcessCallback(ctx context.Context, form url.Values) (*payment.CallbackResult, error)
}

// BookingService exposes the booking reads and cancellation
type BookingService interface {
	Load(ctx context.Context, bookingID string) (*domain.Booking, error)
	Cancel(ctx context.Context, bookingID string) (*domain.Booking, error)
}

// LandingPages are where the browser is sent after a gateway callback
type LandingPages struct {
	Success string
	Failure string
}

// Handler serves the payment and booking payment API
type Handler struct {
	payments PaymentService
	bookings BookingService
	pages    LandingPages
	logger   *zap.Logger
}

// NewHandler creates a new payment handler
func NewHandler(payments PaymentService, bookings BookingService, pages LandingPages, logger *zap.Logger) *Handler {
	return &Handler{
		payments: payments,
		bookings: bookings,
		pages:    pages,
		logger:   logger,
	}
}

// Register mounts the routes on mux
func (h *Handler) Register(mux *http.ServeMux) {
	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"POST /api/v1/payments/initiate", h.InitiatePayment},
		{"POST /api/v1/payments/direct", h.ProcessDirect},
		{"GET /api/v1/payments/{orderID}/status", h.TransactionStatus},
		{"POST /api/v1/payments/callback", h.HandleCallback},
		{"POST /api/v1/bookings/{bookingID}/payment", h.InitiateBookingPayment},
		{"GET /api/v1/bookings/{bookingID}", h.GetBooking},
		{"POST /api/v1/bookings/{bookingID}/refund", h.RefundBooking},
		{"POST /api/v1/bookings/{bookingID}/cancel", h.CancelBooking},
	}
	for _, route := range routes {
		mux.Handle(route.pattern, observability.InstrumentHandler(route.pattern, route.handler))
	}
}

type initiateRequest struct {
	Amount           int64        `json:"amount"`
	Currency         string       `json:"currency"`
	Kind             string       `json:"kind"`
	InstallmentCount int          `json:"installmentCount"`
	CustomerEmail    string       `json:"customerEmail"`
	Card             *domain.Card `json:"card"`
	CompanyName      string       `json:"companyName"`
}

// InitiatePayment handles POST /api/v1/payments/initiate
func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var body initiateRequest
	if err := respond.Decode(w, r, &body); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	currency, err := parseCurrency(body.Currency)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	result, err := h.payments.InitiatePayment(r.Context(), payment.InitiateRequest{
		Amount:           domain.Amount(body.Amount),
		Currency:         currency,
		Kind:             domain.TransactionKind(body.Kind),
		InstallmentCount: body.InstallmentCount,
		CustomerEmail:    body.CustomerEmail,
		CustomerIP:       middleware.ClientIP(r),
		Card:             body.Card,
		CompanyName:      body.CompanyName,
	})
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, result)
}

type bookingPaymentRequest struct {
	Amount           int64        `json:"amount"`
	Currency         string       `json:"currency"`
	InstallmentCount int          `json:"installmentCount"`
	CustomerEmail    string       `json:"customerEmail"`
	Card             *domain.Card `json:"card"`
	PromotionCode    string       `json:"promotionCode"`
	UserID           string       `json:"userId"`
}

// InitiateBookingPayment handles POST /api/v1/bookings/{bookingID}/payment
func (h *Handler) InitiateBookingPayment(w http.ResponseWriter, r *http.Request) {
	var body bookingPaymentRequest
	if err := respond.Decode(w, r, &body); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	var currency domain.Currency
	if body.Currency != "" {
		c, err := parseCurrency(body.Currency)
		if err != nil {
			respond.Error(w, h.logger, err)
			return
		}
		currency = c
	}

	result, err := h.payments.InitiateBookingPayment(r.Context(), payment.BookingPaymentRequest{
		BookingID:        r.PathValue("bookingID"),
		Amount:           domain.Amount(body.Amount),
		Currency:         currency,
		InstallmentCount: body.InstallmentCount,
		CustomerEmail:    body.CustomerEmail,
		CustomerIP:       middleware.ClientIP(r),
		Card:             body.Card,
		PromotionCode:    body.PromotionCode,
		UserID:           body.UserID,
	})
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, result)
}

type directRequest struct {
	Amount           int64        `json:"amount"`
	Currency         string       `json:"currency"`
	Kind             string       `json:"kind"`
	InstallmentCount int          `json:"installmentCount"`
	CustomerEmail    string       `json:"customerEmail"`
	OrderID          string       `json:"orderId"`
	Card             *domain.Card `json:"card"`
	CompanyName      string       `json:"companyName"`
}

// ProcessDirect handles POST /api/v1/payments/direct. A declined settlement
// is answered with both the transaction and the decline error.
func (h *Handler) ProcessDirect(w http.ResponseWriter, r *http.Request) {
	var body directRequest
	if err := respond.Decode(w, r, &body); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	currency, err := parseCurrency(body.Currency)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	result, err := h.payments.ProcessDirect(r.Context(), payment.DirectPaymentRequest{
		Amount:           domain.Amount(body.Amount),
		Currency:         currency,
		Kind:             domain.TransactionKind(body.Kind),
		InstallmentCount: body.InstallmentCount,
		CustomerEmail:    body.CustomerEmail,
		CustomerIP:       middleware.ClientIP(r),
		OrderID:          body.OrderID,
		Card:             body.Card,
		CompanyName:      body.CompanyName,
	})
	if err != nil {
		if result != nil {
			respond.ErrorWithData(w, h.logger, err, result)
			return
		}
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, result)
}

// TransactionStatus handles GET /api/v1/payments/{orderID}/status
func (h *Handler) TransactionStatus(w http.ResponseWriter, r *http.Request) {
	result, err := h.payments.TransactionStatus(r.Context(), r.PathValue("orderID"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, result)
}

// GetBooking handles GET /api/v1/bookings/{bookingID}. Reading an overdue
// booking expires it.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.Load(r.Context(), r.PathValue("bookingID"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, b)
}

type refundRequest struct {
	Amount        int64  `json:"amount"`
	CustomerEmail string `json:"customerEmail"`
}

// RefundBooking handles POST /api/v1/bookings/{bookingID}/refund
func (h *Handler) RefundBooking(w http.ResponseWriter, r *http.Request) {
	var body refundRequest
	if err := respond.Decode(w, r, &body); err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	result, err := h.payments.RefundBooking(r.Context(), payment.BookingRefundRequest{
		BookingID:     r.PathValue("bookingID"),
		Amount:        domain.Amount(body.Amount),
		CustomerEmail: body.CustomerEmail,
		CustomerIP:    middleware.ClientIP(r),
	})
	if err != nil {
		if result != nil {
			respond.ErrorWithData(w, h.logger, err, result)
			return
		}
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, result)
}

// CancelBooking handles POST /api/v1/bookings/{bookingID}/cancel
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.Cancel(r.Context(), r.PathValue("bookingID"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, b)
}

func parseCurrency(raw string) (domain.Currency, error) {
	currency, ok := domain.ParseCurrency(raw)
	if !ok {
		return "", domain.NewValidationError("currency", "unsupported currency "+raw)
	}
	return currency, nil
}
