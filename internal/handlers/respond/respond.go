// Package respond writes the JSON envelopes shared by the HTTP handlers.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kevin07696/booking-payment-service/internal/domain"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies; payment requests are small
const maxBodyBytes = 64 << 10

// ErrorBody is the error half of the envelope
type ErrorBody struct {
	Code    domain.ErrorCode       `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// JSON writes {"success":true,"data":...}
func JSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, envelope{Success: true, Data: data})
}

// Error maps err to its HTTP status and writes the error envelope. Errors that
// are not domain errors are reported as INTERNAL_ERROR without their text.
func Error(w http.ResponseWriter, logger *zap.Logger, err error) {
	ErrorWithData(w, logger, err, nil)
}

// ErrorWithData writes the error envelope and also carries data, used for a
// declined settlement whose result the caller still needs
func ErrorWithData(w http.ResponseWriter, logger *zap.Logger, err error, data interface{}) {
	status := domain.HTTPStatus(err)
	body := &ErrorBody{Code: domain.ErrorCodeInternalError, Message: "internal error"}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		body.Code = domainErr.Code
		body.Message = domainErr.Message
		body.Details = domainErr.Details
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("code", string(body.Code)), zap.Error(err))
	} else {
		logger.Debug("Request rejected", zap.String("code", string(body.Code)), zap.Error(err))
	}
	write(w, status, envelope{Success: false, Data: data, Error: body})
}

// Decode reads a JSON body into dst, rejecting unknown fields and oversized bodies
func Decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("body", "request body is required")
		}
		return domain.NewValidationError("body", fmt.Sprintf("malformed request body: %v", err))
	}
	return nil
}

func write(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
