package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Outcome tags a Settlement
type Outcome int

const (
	OutcomeApproved Outcome = iota + 1
	OutcomeDeclined
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApproved:
		return "approved"
	case OutcomeDeclined:
		return "declined"
	case OutcomeError:
		return "error"
	}
	return "unknown"
}

// FaultKind classifies a settlement that never produced a verdict
type FaultKind string

const (
	FaultTimeout     FaultKind = "timeout"
	FaultTransport   FaultKind = "transport"
	FaultUnavailable FaultKind = "unavailable"
	FaultProtocol    FaultKind = "protocol"
	FaultSecurity    FaultKind = "security"
	// FaultInvalidRequest means the request never left the process.
	FaultInvalidRequest FaultKind = "invalid_request"
)

// SettlementDetails are the gateway-reported fields of a verdict
type SettlementDetails struct {
	OrderID    string
	ReturnCode string
	AuthCode   string
	HostRefNum string
	Message    string
}

// Decline carries the classified reason for a non-approved verdict
type Decline struct {
	Code        string
	Message     string
	Category    string
	HTTPStatus  int
	Retryable   bool
	UserFixable bool
	Critical    bool
}

// Fault wraps the error behind an errored settlement
type Fault struct {
	Kind FaultKind
	Err  error
}

// Settlement is approved, declined(reason) or error(kind). Callers switch on Outcome.
type Settlement struct {
	outcome Outcome
	details SettlementDetails
	decline Decline
	fault   Fault
}

// Approved builds an approved settlement
func Approved(details SettlementDetails) Settlement {
	return Settlement{outcome: OutcomeApproved, details: details}
}

// Declined builds a declined settlement
func Declined(details SettlementDetails, reason Decline) Settlement {
	return Settlement{outcome: OutcomeDeclined, details: details, decline: reason}
}

// Errored builds a settlement that has no verdict
func Errored(kind FaultKind, err error) Settlement {
	return Settlement{outcome: OutcomeError, fault: Fault{Kind: kind, Err: err}}
}

// Outcome returns the tag
func (s Settlement) Outcome() Outcome { return s.outcome }

// IsApproved reports an approved verdict
func (s Settlement) IsApproved() bool { return s.outcome == OutcomeApproved }

// Details returns the gateway fields; zero for errored settlements
func (s Settlement) Details() SettlementDetails { return s.details }

// Decline returns the decline reason when the outcome is declined
func (s Settlement) Decline() (Decline, bool) {
	return s.decline, s.outcome == OutcomeDeclined
}

// Fault returns the fault when the outcome is error
func (s Settlement) Fault() (Fault, bool) {
	return s.fault, s.outcome == OutcomeError
}

// DomainError converts a fault into the error surfaced to callers
func (f Fault) DomainError() *DomainError {
	switch f.Kind {
	case FaultInvalidRequest:
		var domainErr *DomainError
		if errors.As(f.Err, &domainErr) {
			return domainErr
		}
		return WrapError(ErrorCodeValidationFailed, "invalid payment request", f.Err)
	case FaultTimeout:
		return WrapError(ErrorCodeGatewayTimeout,
			"gateway did not answer in time; reconcile via the status endpoint before retrying", f.Err).
			WithDetail("retryable", true)
	case FaultUnavailable:
		return WrapError(ErrorCodeGatewayUnavailable, "gateway temporarily unavailable", f.Err).
			WithDetail("retryable", true).WithStatus(http.StatusServiceUnavailable)
	case FaultTransport:
		return WrapError(ErrorCodeGatewayUnavailable, "gateway connection failed", f.Err).
			WithDetail("retryable", true)
	case FaultSecurity:
		return WrapError(ErrorCodeSecurityHashMismatch, "gateway rejected request signature", f.Err)
	default:
		return WrapError(ErrorCodeGatewayProtocol, "unexpected gateway response", f.Err)
	}
}

func (s Settlement) String() string {
	switch s.outcome {
	case OutcomeDeclined:
		return fmt.Sprintf("declined(%s)", s.decline.Code)
	case OutcomeError:
		return fmt.Sprintf("error(%s)", s.fault.Kind)
	}
	return s.outcome.String()
}
