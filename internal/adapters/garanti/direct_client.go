package garanti

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/kevin07696/booking-payment-service/internal/domain"
	"github.com/kevin07696/booking-payment-service/pkg/observability"
	"github.com/kevin07696/booking-payment-service/pkg/resilience"
	"github.com/kevin07696/booking-payment-service/pkg/security"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

// StatusError is a non-200 reply from the gateway endpoint
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway returned HTTP %d", e.StatusCode)
}

// DirectClient posts signed XML requests to the gateway and classifies the reply
type DirectClient struct {
	config     Config
	creds      Credentials
	httpClient *http.Client
	logger     *zap.Logger
	breaker    *CircuitBreaker
	backoff    resilience.BackoffStrategy
}

// NewDirectClient creates a direct gateway client
func NewDirectClient(config Config, creds Credentials, httpClient *http.Client, logger *zap.Logger) *DirectClient {
	cbConfig := DefaultCircuitBreakerConfig()
	cbConfig.Trips = tripsBreaker
	cbConfig.OnStateChange = func(from, to CircuitState) {
		observability.SetGatewayCircuitState(int(to))
		logger.Warn("Gateway circuit breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	return &DirectClient{
		config:     config,
		creds:      creds,
		httpClient: httpClient,
		logger:     logger,
		breaker:    NewCircuitBreaker(cbConfig),
		backoff:    resilience.DefaultExponentialBackoff(),
	}
}

// Process signs, sends and classifies one direct payment or refund.
// Once the request has been written it is never resent: a timeout is
// reported as an errored settlement, not a decline.
func (c *DirectClient) Process(ctx context.Context, req *domain.PaymentRequest) domain.Settlement {
	doc, err := BuildDirectRequest(c.config, c.creds, req)
	if err != nil {
		return domain.Errored(domain.FaultInvalidRequest, err)
	}
	body, err := MarshalRequest(doc)
	if err != nil {
		return domain.Errored(domain.FaultInvalidRequest, domain.WrapError(domain.ErrorCodeValidationFailed,
			"request contains characters the gateway cannot encode", err))
	}

	c.logger.Debug("Sending direct gateway request",
		zap.String("order_id", req.OrderID),
		zap.String("kind", string(req.Kind)),
		zap.String("masked_pan", req.Card.Masked()),
		zap.String("request", security.RedactGatewayXML(string(body))),
	)

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	var raw []byte
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		var sendErr error
		raw, sendErr = c.send(ctx, body)
		return sendErr
	})
	settlement := c.settle(req, raw, err)
	observability.ObserveGatewayRequest(string(req.Kind), settlement.Outcome().String(), time.Since(start))
	return settlement
}

func (c *DirectClient) settle(req *domain.PaymentRequest, raw []byte, err error) domain.Settlement {
	if err != nil {
		kind := faultKind(err)
		c.logger.Error("Direct gateway call failed",
			zap.String("order_id", req.OrderID),
			zap.String("fault", string(kind)),
			zap.Error(err),
		)
		return domain.Errored(kind, err)
	}

	result, err := ParseResponse(raw)
	if err != nil {
		c.logger.Error("Gateway returned a malformed response",
			zap.String("order_id", req.OrderID),
			zap.String("response", security.RedactGatewayXML(string(raw))),
			zap.Error(err),
		)
		return domain.Errored(domain.FaultProtocol, err)
	}

	settlement := Classify(result)
	if reason, declined := settlement.Decline(); declined {
		fields := []zap.Field{
			zap.String("order_id", req.OrderID),
			zap.String("return_code", reason.Code),
			zap.String("category", reason.Category),
			zap.String("gateway_message", security.RedactPAN(result.ErrorMessage)),
		}
		if reason.Critical {
			c.logger.Error("Gateway rejected request with a critical code", fields...)
		} else {
			c.logger.Info("Gateway declined transaction", fields...)
		}
		return settlement
	}

	c.logger.Info("Gateway approved transaction",
		zap.String("order_id", req.OrderID),
		zap.String("auth_code", result.AuthCode),
		zap.String("host_ref_num", result.HostRefNum),
	)
	return settlement
}

// send retries only while the connection could not be established, since
// nothing has reached the gateway yet in that case.
func (c *DirectClient) send(ctx context.Context, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := resilience.Wait(ctx, c.backoff, attempt-1); err != nil {
				return nil, err
			}
		}

		raw, err := c.postOnce(ctx, body)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !neverSent(err) {
			return nil, err
		}
		c.logger.Warn("Gateway connection failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", c.config.MaxRetries),
			zap.Error(err),
		)
	}
	return nil, lastErr
}

func (c *DirectClient) postOnce(ctx context.Context, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "text/xml; charset="+Charset)
	httpReq.Header.Set("Accept", "text/xml")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}
	return raw, nil
}

func neverSent(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func faultKind(err error) domain.FaultKind {
	var statusErr *StatusError
	var netErr net.Error
	switch {
	case errors.Is(err, ErrCircuitOpen), errors.Is(err, ErrTooManyRequests):
		return domain.FaultUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return domain.FaultTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return domain.FaultTimeout
	case errors.As(err, &statusErr):
		if statusErr.StatusCode >= 500 {
			return domain.FaultUnavailable
		}
		return domain.FaultProtocol
	case neverSent(err):
		return domain.FaultTransport
	}
	// The request may have reached the gateway; the outcome is unknown.
	return domain.FaultTimeout
}

// Only transport-level trouble trips the breaker; a decline is a healthy round trip.
func tripsBreaker(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}
	return true
}
