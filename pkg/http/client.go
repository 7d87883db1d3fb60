package http

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// HTTPClientConfig tunes the outbound transport
type HTTPClientConfig struct {
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration

	DialTimeout         time.Duration
	KeepAlive           time.Duration
	TLSHandshakeTimeout time.Duration

	// Zero leaves the wait for headers to the client timeout
	ResponseHeaderTimeout time.Duration

	DisableCompression bool
	MinTLSVersion      uint16
}

// GatewayClientConfig returns a pool tuned for the single bank gateway host.
// A slow provision is reported as a timeout of the whole call.
func GatewayClientConfig() *HTTPClientConfig {
	return &HTTPClientConfig{
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,

		DialTimeout:         5 * time.Second,
		KeepAlive:           60 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,

		// Gateway replies are small XML documents
		DisableCompression: true,
		MinTLSVersion:      tls.VersionTLS12,
	}
}

// NewHTTPClient builds a client that never follows redirects; the gateway
// does not redirect a provision call, so a 3xx is surfaced as-is.
func NewHTTPClient(cfg *HTTPClientConfig, timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAlive,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          cfg.MaxIdleConnsPerHost,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ExpectContinueTimeout: time.Second,
		DisableCompression:    cfg.DisableCompression,
		TLSClientConfig:       &tls.Config{MinVersion: cfg.MinTLSVersion},
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
