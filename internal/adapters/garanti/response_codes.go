package garanti

import (
	"net/http"
	"strings"

	"github.com/kevin07696/booking-payment-service/internal/domain"
	pkgerrors "github.com/kevin07696/booking-payment-service/pkg/errors"
)

// ResponseCodeInfo classifies a bank return code
type ResponseCodeInfo struct {
	Code        string
	Message     string // customer-facing text as the bank words it
	Description string // operator-facing text for logs
	Category    pkgerrors.ErrorCategory
	HTTPStatus  int
	IsApproved  bool
	IsRetriable bool
	NotFound    bool
}

// IsCritical reports whether the code should page on-call
func (i ResponseCodeInfo) IsCritical() bool { return i.Category.IsCritical() }

// RequiresUserAction reports whether the customer can fix the input
func (i ResponseCodeInfo) RequiresUserAction() bool { return i.Category.IsUserFixable() }

type codeEntry struct {
	message     string
	description string
	notFound    bool
}

// Generic "transaction failed", connectivity and timeout codes are the only retryable ones.
var retryableCodes = map[string]bool{
	"0101": true,
	"9992": true,
	"9993": true,
	"9998": true,
}

var responseCodes = map[string]codeEntry{
	// 00xx validation
	"0001": {"Kart numarası geçersiz.", "invalid card number", false},
	"0002": {"Son kullanma tarihi geçersiz.", "invalid expiry date", false},
	"0003": {"CVV2 değeri geçersiz.", "invalid CVV2", false},
	"0004": {"Tutar geçersiz.", "invalid amount", false},
	"0005": {"Para birimi geçersiz.", "invalid currency code", false},
	"0006": {"Taksit sayısı geçersiz.", "invalid installment count", false},
	"0007": {"Sipariş numarası geçersiz.", "invalid order id", false},
	"0008": {"E-posta adresi geçersiz.", "invalid email address", false},
	"0009": {"IP adresi geçersiz.", "invalid IP address", false},
	"0010": {"Kart sahibi adı geçersiz.", "invalid cardholder name", false},
	"0011": {"Zorunlu alan eksik.", "required field missing", false},
	"0012": {"İşlem tipi geçersiz.", "invalid transaction type", false},
	"0013": {"Kartın son kullanma tarihi geçmiş.", "card expired", false},
	"0014": {"İstek formatı hatalı.", "malformed request", false},

	// 01xx transaction
	"0101": {"İşlem gerçekleştirilemedi, lütfen tekrar deneyiniz.", "transaction failed", false},
	"0102": {"İşlem kartı veren banka tarafından reddedildi.", "declined by issuer", false},
	"0103": {"Kart bakiyesi yetersiz.", "insufficient funds", false},
	"0104": {"Kart kullanıma kapalı.", "restricted card", false},
	"0105": {"Kayıp kart, lütfen bankanızla görüşünüz.", "lost card", false},
	"0106": {"Çalıntı kart, lütfen bankanızla görüşünüz.", "stolen card", false},
	"0107": {"Şüpheli işlem, lütfen bankanızla görüşünüz.", "suspected fraud", false},
	"0108": {"Kart bu işleme izin vermiyor.", "transaction not permitted to card", false},
	"0109": {"İşlem bulunamadı.", "transaction not found", true},
	"0110": {"Bu sipariş numarası ile daha önce işlem yapılmış.", "duplicate order id", false},
	"0111": {"3D Secure doğrulaması başarısız.", "3-D Secure authentication failed", false},
	"0112": {"Üye işyeri geçersiz.", "invalid merchant", false},
	"0113": {"İşlem onaylanmadı.", "do not honor", false},
	"0114": {"Kart tipi desteklenmiyor.", "card type not supported", false},

	// 02xx refund/cancel
	"0201": {"İade işlemi gerçekleştirilemedi.", "refund failed", false},
	"0202": {"İade edilecek orijinal işlem bulunamadı.", "original transaction not found", true},
	"0203": {"İade tutarı orijinal tutarı aşıyor.", "refund exceeds original amount", false},
	"0204": {"İşlem daha önce iade edilmiş.", "already refunded", false},
	"0205": {"İptal işlemi gerçekleştirilemedi.", "cancel failed", false},
	"0206": {"İptal süresi dolmuş, iade yapınız.", "cancel window elapsed", false},
	"0207": {"İşlem daha önce iptal edilmiş.", "already cancelled", false},
	"0208": {"Kısmi iadeye izin verilmiyor.", "partial refund not allowed", false},
	"0209": {"Ön provizyon işlemleri iade edilemez.", "refund not allowed for preauth", false},

	// 04xx limit
	"0401": {"Günlük işlem limiti aşıldı.", "daily limit exceeded", false},
	"0402": {"Aylık işlem limiti aşıldı.", "monthly limit exceeded", false},
	"0403": {"İşlem başına limit aşıldı.", "per-transaction limit exceeded", false},
	"0404": {"Çok fazla deneme yapıldı, lütfen daha sonra tekrar deneyiniz.", "too many attempts", false},
	"0405": {"Kart limiti yetersiz.", "card limit insufficient", false},
	"0406": {"Taksit limiti aşıldı.", "installment limit exceeded", false},

	// 065x auth
	"0651": {"Provizyon kullanıcısı geçersiz.", "invalid provision user", false},
	"0652": {"Provizyon şifresi hatalı.", "invalid provision password", false},
	"0653": {"Kullanıcı kilitli.", "user locked", false},
	"0654": {"Kimlik doğrulama başarısız.", "authentication failed", false},
	"0655": {"Kullanıcının bu işleme yetkisi yok.", "user not authorized for transaction", false},

	// 07xx terminal
	"0701": {"Terminal bulunamadı.", "terminal not found", false},
	"0702": {"Terminal aktif değil.", "terminal inactive", false},
	"0703": {"İşlem tipi terminal için tanımlı değil.", "transaction type not enabled on terminal", false},
	"0704": {"Para birimi terminal için tanımlı değil.", "currency not enabled on terminal", false},
	"0705": {"Taksitli işleme terminal izin vermiyor.", "installments not enabled on terminal", false},
	"0706": {"Üye işyeri aktif değil.", "merchant inactive", false},

	// 0804 security
	"0804": {"Güvenlik doğrulaması başarısız.", "security hash mismatch", false},

	// 999x system
	"9990": {"Sistem hatası, lütfen daha sonra tekrar deneyiniz.", "database error at gateway", false},
	"9991": {"Sistem hatası.", "system error", false},
	"9992": {"Servis geçici olarak kullanılamıyor.", "service unavailable", false},
	"9993": {"Bağlantı hatası.", "connection error", false},
	"9994": {"Sistem bakımda.", "maintenance", false},
	"9995": {"Beklenmeyen yanıt alındı.", "unexpected response", false},
	"9996": {"İletişim hatası.", "communication error", false},
	"9997": {"Banka sistemine ulaşılamıyor.", "host unreachable", false},
	"9998": {"İşlem zaman aşımına uğradı.", "system timeout", false},
	"9999": {"Genel sistem hatası.", "general system error", false},
}

// CodeUnexpectedResponse classifies replies whose fields disagree on the verdict
const CodeUnexpectedResponse = "9995"

// LookupResponseCode classifies a bank return code. Unlisted codes in a known
// family inherit the family; anything else gets the default (400, unknown).
func LookupResponseCode(code string) ResponseCodeInfo {
	code = strings.TrimSpace(code)
	if code == approvedReasonCode {
		return ResponseCodeInfo{
			Code:        code,
			Message:     "İşlem onaylandı.",
			Description: "approved",
			Category:    pkgerrors.CategoryApproved,
			HTTPStatus:  http.StatusOK,
			IsApproved:  true,
		}
	}

	category := categoryFor(code)
	info := ResponseCodeInfo{
		Code:        code,
		Category:    category,
		HTTPStatus:  statusFor(category),
		IsRetriable: retryableCodes[code],
	}
	if entry, ok := responseCodes[code]; ok {
		info.Message = entry.message
		info.Description = entry.description
		info.NotFound = entry.notFound
	} else {
		info.Message = "İşlem gerçekleştirilemedi."
		info.Description = "unknown response code"
	}
	if info.NotFound {
		info.HTTPStatus = http.StatusNotFound
	}
	return info
}

func categoryFor(code string) pkgerrors.ErrorCategory {
	if len(code) != 4 {
		return pkgerrors.CategoryUnknown
	}
	switch {
	case code == "0804":
		return pkgerrors.CategorySecurity
	case strings.HasPrefix(code, "065"):
		return pkgerrors.CategoryAuth
	case strings.HasPrefix(code, "999"):
		return pkgerrors.CategorySystem
	case strings.HasPrefix(code, "00"):
		return pkgerrors.CategoryValidation
	case strings.HasPrefix(code, "01"):
		return pkgerrors.CategoryTransaction
	case strings.HasPrefix(code, "02"):
		return pkgerrors.CategoryRefund
	case strings.HasPrefix(code, "04"):
		return pkgerrors.CategoryLimit
	case strings.HasPrefix(code, "07"):
		return pkgerrors.CategoryTerminal
	}
	return pkgerrors.CategoryUnknown
}

func statusFor(category pkgerrors.ErrorCategory) int {
	switch category {
	case pkgerrors.CategoryValidation:
		return http.StatusBadRequest
	case pkgerrors.CategoryAuth:
		return http.StatusUnauthorized
	case pkgerrors.CategoryLimit:
		return http.StatusTooManyRequests
	case pkgerrors.CategoryTerminal, pkgerrors.CategorySecurity:
		return http.StatusForbidden
	case pkgerrors.CategorySystem:
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// ToPaymentError converts a non-approved code to a PaymentError
func (i ResponseCodeInfo) ToPaymentError(gatewayMessage string) *pkgerrors.PaymentError {
	if i.IsApproved {
		return nil
	}
	pe := pkgerrors.NewPaymentError(i.Code, i.Message, i.Category, i.IsRetriable)
	pe.GatewayMessage = gatewayMessage
	pe.HTTPStatus = i.HTTPStatus
	pe.Details["description"] = i.Description
	return pe
}

// Classify turns a parsed reply into a settlement
func Classify(result *Result) domain.Settlement {
	details := domain.SettlementDetails{
		OrderID:    result.OrderID,
		ReturnCode: result.ReasonCode,
		AuthCode:   result.AuthCode,
		HostRefNum: result.HostRefNum,
		Message:    result.Message,
	}
	if result.Approved {
		return domain.Approved(details)
	}

	code := result.ErrorCode
	if code == "" || code == approvedReasonCode {
		// "00" without "Approved" (or the reverse) is not a verdict we trust.
		code = CodeUnexpectedResponse
	}
	info := LookupResponseCode(code)
	if result.ErrorMessage != "" {
		details.Message = result.ErrorMessage
	}
	return domain.Declined(details, DeclineFor(info))
}

// DeclineFor builds the decline reason for a classified code
func DeclineFor(info ResponseCodeInfo) domain.Decline {
	return domain.Decline{
		Code:        info.Code,
		Message:     info.Message,
		Category:    string(info.Category),
		HTTPStatus:  info.HTTPStatus,
		Retryable:   info.IsRetriable,
		UserFixable: info.RequiresUserAction(),
		Critical:    info.IsCritical(),
	}
}
