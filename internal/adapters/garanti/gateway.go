package garanti

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/kevin07696/booking-payment-service/internal/domain"
	"github.com/kevin07696/booking-payment-service/internal/domain/ports"
	pkghttp "github.com/kevin07696/booking-payment-service/pkg/http"
	"github.com/kevin07696/booking-payment-service/pkg/security"
	"go.uber.org/zap"
)

// Gateway bundles the redirect, direct and callback sides of one terminal
type Gateway struct {
	config   Config
	creds    Credentials
	direct   *DirectClient
	callback *CallbackParser
	logger   *zap.Logger
}

var _ ports.PaymentGateway = (*Gateway)(nil)

// NewGateway wires a terminal's configuration and secrets. A nil httpClient
// gets the pooled gateway client.
func NewGateway(config Config, creds Credentials, httpClient *http.Client, requireCallbackHash bool, logger *zap.Logger) *Gateway {
	if httpClient == nil {
		httpClient = pkghttp.NewHTTPClient(pkghttp.GatewayClientConfig(), config.Timeout)
	}
	logger = logger.Named("garanti")
	return &Gateway{
		config:   config,
		creds:    creds,
		direct:   NewDirectClient(config, creds, httpClient, logger),
		callback: NewCallbackParser(creds.StoreKey, requireCallbackHash),
		logger:   logger,
	}
}

// BuildRedirect signs and returns the flat form field map
func (g *Gateway) BuildRedirect(req *domain.PaymentRequest, now time.Time) (map[string]string, error) {
	form, err := BuildRedirectForm(g.config, g.creds, req, now)
	if err != nil {
		return nil, err
	}
	fields := form.Fields()
	if ce := g.logger.Check(zap.DebugLevel, "Redirect form signed"); ce != nil {
		ce.Write(zap.Any("fields", security.RedactForm(fields)))
	}
	return fields, nil
}

// RedirectURL is where the browser posts the redirect form
func (g *Gateway) RedirectURL() string {
	return g.config.RedirectURL
}

// Process sends a direct payment or refund
func (g *Gateway) Process(ctx context.Context, req *domain.PaymentRequest) domain.Settlement {
	return g.direct.Process(ctx, req)
}

// ParseCallback validates an inbound redirect-flow callback
func (g *Gateway) ParseCallback(form url.Values) (*domain.GatewayCallback, error) {
	return g.callback.ParseCallback(form)
}

// ClassifyReturnCode maps a callback return code to a decline reason
func (g *Gateway) ClassifyReturnCode(code string) domain.Decline {
	return DeclineFor(LookupResponseCode(code))
}
