package garanti

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/kevin07696/booking-payment-service/internal/domain"
)

// ErrMalformedResponse marks a gateway reply that could not be decoded
var ErrMalformedResponse = errors.New("malformed gateway response")

const (
	approvedReasonCode = "00"
	approvedMessage    = "Approved"
)

// GVPSRequest is the direct payment/refund document. Field order is the wire order.
type GVPSRequest struct {
	XMLName     xml.Name           `xml:"GVPSRequest"`
	Mode        string             `xml:"Mode"`
	Version     string             `xml:"Version"`
	Terminal    RequestTerminal    `xml:"Terminal"`
	Customer    RequestCustomer    `xml:"Customer"`
	Order       RequestOrder       `xml:"Order"`
	Transaction RequestTransaction `xml:"Transaction"`
	Card        *RequestCard       `xml:"Card,omitempty"`
}

type RequestTerminal struct {
	ProvUserID string `xml:"ProvUserID"`
	HashData   string `xml:"HashData"`
	UserID     string `xml:"UserID"`
	ID         string `xml:"ID"`
	MerchantID string `xml:"MerchantID"`
}

type RequestCustomer struct {
	IPAddress    string `xml:"IPAddress"`
	EmailAddress string `xml:"EmailAddress"`
}

type RequestOrder struct {
	OrderID string `xml:"OrderID"`
	GroupID string `xml:"GroupID"`
}

type RequestTransaction struct {
	Type                  string `xml:"Type"`
	InstallmentCnt        string `xml:"InstallmentCnt,omitempty"`
	Amount                string `xml:"Amount"`
	CurrencyCode          string `xml:"CurrencyCode"`
	CardholderPresentCode string `xml:"CardholderPresentCode"`
	MotoInd               string `xml:"MotoInd"`
}

type RequestCard struct {
	Number     string `xml:"Number"`
	ExpireDate string `xml:"ExpireDate"`
	CVV2       string `xml:"CVV2"`
}

// BuildDirectRequest validates, signs and assembles the XML request for req
func BuildDirectRequest(cfg Config, creds Credentials, req *domain.PaymentRequest) (*GVPSRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.OrderID == "" {
		return nil, domain.NewValidationError("orderId", "order id must be assigned before signing")
	}

	doc := &GVPSRequest{
		Mode:    string(cfg.Mode),
		Version: apiVersion,
		Terminal: RequestTerminal{
			UserID:     cfg.UserID,
			ID:         cfg.TerminalID,
			MerchantID: cfg.MerchantID,
		},
		Customer: RequestCustomer{
			IPAddress:    req.CustomerIP,
			EmailAddress: req.CustomerEmail,
		},
		Order: RequestOrder{OrderID: req.OrderID},
		Transaction: RequestTransaction{
			Type:                  string(req.Kind),
			InstallmentCnt:        formatInstallments(req.InstallmentCount),
			Amount:                formatAmount(req.Amount),
			CurrencyCode:          req.Currency.String(),
			CardholderPresentCode: "0",
		},
	}

	var (
		hash string
		err  error
	)
	if req.Kind.IsRefund() {
		hash, err = RefundHash(RefundHashInput{
			OrderID:      req.OrderID,
			TerminalID:   cfg.TerminalID,
			Amount:       req.Amount,
			Currency:     req.Currency,
			UserPassword: creds.UserPassword,
		})
		doc.Terminal.ProvUserID = cfg.RefundProvUserID
		doc.Transaction.MotoInd = motoIndicatorRefund
	} else {
		hash, err = SaleHash(SaleHashInput{
			OrderID:      req.OrderID,
			TerminalID:   cfg.TerminalID,
			CardNumber:   req.Card.Number,
			Amount:       req.Amount,
			Currency:     req.Currency,
			UserPassword: creds.UserPassword,
		})
		doc.Terminal.ProvUserID = cfg.ProvUserID
		doc.Transaction.MotoInd = motoIndicatorSale
		doc.Card = &RequestCard{
			Number:     req.Card.Number,
			ExpireDate: req.Card.ExpireMMYY(),
			CVV2:       req.Card.CVV,
		}
	}
	if err != nil {
		return nil, fmt.Errorf("sign direct request: %w", err)
	}
	doc.Terminal.HashData = hash
	return doc, nil
}

// MarshalRequest encodes the document in the gateway charset
func MarshalRequest(doc *GVPSRequest) ([]byte, error) {
	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="` + Charset + `"?>`)
	buf.Write(body)
	return toLatin9(buf.String())
}

// GVPSResponse is the gateway reply document
type GVPSResponse struct {
	XMLName     xml.Name             `xml:"GVPSResponse"`
	Mode        string               `xml:"Mode"`
	Order       RequestOrder         `xml:"Order"`
	Transaction *ResponseTransaction `xml:"Transaction"`
}

type ResponseTransaction struct {
	Response    ResponseStatus `xml:"Response"`
	RetrefNum   string         `xml:"RetrefNum"`
	AuthCode    string         `xml:"AuthCode"`
	BatchNum    string         `xml:"BatchNum"`
	SequenceNum string         `xml:"SequenceNum"`
	ProvDate    string         `xml:"ProvDate"`
}

type ResponseStatus struct {
	Source     string         `xml:"Source"`
	Code       string         `xml:"Code"`
	ReasonCode string         `xml:"ReasonCode"`
	Message    string         `xml:"Message"`
	ErrorMsg   string         `xml:"ErrorMsg"`
	SysErrMsg  string         `xml:"SysErrMsg"`
	Error      *ResponseError `xml:"Error"`
}

type ResponseError struct {
	Code    string `xml:"Code"`
	Message string `xml:"Message"`
}

// Result is the normalized gateway verdict
type Result struct {
	OrderID      string
	ReasonCode   string
	Message      string
	AuthCode     string
	HostRefNum   string
	ErrorCode    string
	ErrorMessage string
	Approved     bool
}

// ParseResponse decodes a GVPSResponse. Both ReasonCode "00" and Message
// "Approved" are required for an approved verdict.
func ParseResponse(body []byte) (*Result, error) {
	var resp GVPSResponse
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charsetReader
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Transaction == nil {
		return nil, fmt.Errorf("%w: missing Transaction element", ErrMalformedResponse)
	}

	status := resp.Transaction.Response
	result := &Result{
		OrderID:    resp.Order.OrderID,
		ReasonCode: status.ReasonCode,
		Message:    status.Message,
		AuthCode:   resp.Transaction.AuthCode,
		HostRefNum: resp.Transaction.RetrefNum,
		Approved:   status.ReasonCode == approvedReasonCode && status.Message == approvedMessage,
	}
	if result.Approved {
		return result, nil
	}

	result.ErrorCode = status.ReasonCode
	switch {
	case status.Error != nil && (status.Error.Code != "" || status.Error.Message != ""):
		if status.Error.Code != "" {
			result.ErrorCode = status.Error.Code
		}
		result.ErrorMessage = status.Error.Message
	case status.ErrorMsg != "":
		result.ErrorMessage = status.ErrorMsg
	default:
		result.ErrorMessage = status.SysErrMsg
	}
	if result.ErrorMessage == "" {
		result.ErrorMessage = status.Message
	}
	return result, nil
}
