package garanti

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kevin07696/booking-payment-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDirectClient(t *testing.T, handler http.HandlerFunc) (*DirectClient, *int32) {
	t.Helper()
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	cfg := testConfig()
	cfg.APIURL = server.URL
	cfg.Timeout = 2 * time.Second
	cfg.MaxRetries = 2
	return NewDirectClient(cfg, testCredentials(), &http.Client{}, zap.NewNop()), &hits
}

func TestDirectClient_Approved(t *testing.T) {
	client, hits := newTestDirectClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "text/xml; charset=ISO-8859-15", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "<HashData>"+goldenSaleHash+"</HashData>")
		assert.Contains(t, string(body), "<Number>"+testPAN+"</Number>")
		_, _ = io.WriteString(w, approvedResponseXML)
	})

	settlement := client.Process(context.Background(), saleRequest())

	require.True(t, settlement.IsApproved(), settlement.String())
	assert.Equal(t, "304919", settlement.Details().AuthCode)
	assert.Equal(t, "415312345678", settlement.Details().HostRefNum)
	assert.Equal(t, testOrderID, settlement.Details().OrderID)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestDirectClient_Refund(t *testing.T) {
	client, _ := newTestDirectClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.NotContains(t, string(body), "<Card>")
		assert.Contains(t, string(body), "<ProvUserID>PROVRFN</ProvUserID>")
		assert.Contains(t, string(body), "<Type>refund</Type>")
		_, _ = io.WriteString(w, approvedResponseXML)
	})

	settlement := client.Process(context.Background(), refundRequest(5000))
	assert.True(t, settlement.IsApproved())
}

func TestDirectClient_Declined(t *testing.T) {
	client, _ := newTestDirectClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, declinedResponseXML("0103", "Insufficient funds"))
	})

	settlement := client.Process(context.Background(), saleRequest())

	assert.Equal(t, domain.OutcomeDeclined, settlement.Outcome())
	decline, ok := settlement.Decline()
	require.True(t, ok)
	assert.Equal(t, "0103", decline.Code)
	assert.False(t, decline.Retryable)
	assert.Equal(t, "Insufficient funds", settlement.Details().Message)
}

func TestDirectClient_InvalidRequestNeverSent(t *testing.T) {
	client, hits := newTestDirectClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("gateway must not be called")
	})
	req := saleRequest()
	req.Amount = 0

	settlement := client.Process(context.Background(), req)

	fault, ok := settlement.Fault()
	require.True(t, ok)
	assert.Equal(t, domain.FaultInvalidRequest, fault.Kind)
	assert.True(t, domain.IsDomainError(fault.DomainError(), domain.ErrorCodeValidationFailed))
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestDirectClient_TimeoutIsNotADecline(t *testing.T) {
	release := make(chan struct{})
	client, hits := newTestDirectClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	client.config.Timeout = 50 * time.Millisecond

	settlement := client.Process(context.Background(), saleRequest())

	fault, ok := settlement.Fault()
	require.True(t, ok, settlement.String())
	assert.Equal(t, domain.FaultTimeout, fault.Kind)
	assert.True(t, fault.DomainError().Retryable())
	assert.Equal(t, int32(1), atomic.LoadInt32(hits), "a sent request is never resent")
}

func TestDirectClient_ServerErrorIsNotResent(t *testing.T) {
	client, hits := newTestDirectClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	settlement := client.Process(context.Background(), saleRequest())

	fault, ok := settlement.Fault()
	require.True(t, ok)
	assert.Equal(t, domain.FaultUnavailable, fault.Kind)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestDirectClient_MalformedResponse(t *testing.T) {
	client, _ := newTestDirectClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>maintenance</html>")
	})

	settlement := client.Process(context.Background(), saleRequest())

	fault, ok := settlement.Fault()
	require.True(t, ok)
	assert.Equal(t, domain.FaultProtocol, fault.Kind)
	assert.ErrorIs(t, fault.Err, ErrMalformedResponse)
}

func TestDirectClient_DeclinesDoNotTripBreaker(t *testing.T) {
	client, _ := newTestDirectClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, declinedResponseXML("0102", "Declined"))
	})

	for i := 0; i < 10; i++ {
		settlement := client.Process(context.Background(), saleRequest())
		assert.Equal(t, domain.OutcomeDeclined, settlement.Outcome())
	}
	assert.Equal(t, StateClosed, client.breaker.State())
}

func TestDirectClient_OpenBreakerShortCircuits(t *testing.T) {
	client, hits := newTestDirectClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 5; i++ {
		client.Process(context.Background(), saleRequest())
	}
	require.Equal(t, StateOpen, client.breaker.State())

	settlement := client.Process(context.Background(), saleRequest())
	fault, ok := settlement.Fault()
	require.True(t, ok)
	assert.Equal(t, domain.FaultUnavailable, fault.Kind)
	assert.ErrorIs(t, fault.Err, ErrCircuitOpen)
	assert.Equal(t, int32(5), atomic.LoadInt32(hits))
}

func TestDirectClient_RetriesOnlyUnsentRequests(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	cfg := testConfig()
	cfg.APIURL = "http://" + addr
	cfg.MaxRetries = 1
	cfg.Timeout = 5 * time.Second
	client := NewDirectClient(cfg, testCredentials(), &http.Client{}, zap.NewNop())

	settlement := client.Process(context.Background(), saleRequest())

	fault, ok := settlement.Fault()
	require.True(t, ok)
	assert.Equal(t, domain.FaultTransport, fault.Kind)
}

func TestFaultKind(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	readErr := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}

	tests := []struct {
		name string
		err  error
		want domain.FaultKind
	}{
		{"circuit open", ErrCircuitOpen, domain.FaultUnavailable},
		{"half-open busy", ErrTooManyRequests, domain.FaultUnavailable},
		{"deadline", context.DeadlineExceeded, domain.FaultTimeout},
		{"bad gateway", &StatusError{StatusCode: 502}, domain.FaultUnavailable},
		{"not found", &StatusError{StatusCode: 404}, domain.FaultProtocol},
		{"dial", dialErr, domain.FaultTransport},
		{"dns", &net.DNSError{Err: "no such host", Name: "gateway.invalid"}, domain.FaultTransport},
		{"reset after send", readErr, domain.FaultTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, faultKind(tt.err))
		})
	}

	assert.True(t, neverSent(dialErr))
	assert.False(t, neverSent(readErr))
	assert.False(t, tripsBreaker(&StatusError{StatusCode: 400}))
	assert.True(t, tripsBreaker(&StatusError{StatusCode: 503}))
	assert.True(t, strings.Contains((&StatusError{StatusCode: 503}).Error(), "503"))
}
