package ports

import (
	"context"
	"net/url"
	"time"

	"github.com/kevin07696/booking-payment-service/internal/domain"
)

// RedirectGateway signs 3-D Secure redirect forms
type RedirectGateway interface {
	BuildRedirect(req *domain.PaymentRequest, now time.Time) (map[string]string, error)
	RedirectURL() string
}

// DirectGateway sends a signed direct payment or refund and classifies the reply
type DirectGateway interface {
	Process(ctx context.Context, req *domain.PaymentRequest) domain.Settlement
}

// CallbackParser validates inbound redirect-flow callbacks
type CallbackParser interface {
	ParseCallback(form url.Values) (*domain.GatewayCallback, error)
	ClassifyReturnCode(code string) domain.Decline
}

// PaymentGateway is everything the orchestrator needs from the bank
type PaymentGateway interface {
	RedirectGateway
	DirectGateway
	CallbackParser
}
