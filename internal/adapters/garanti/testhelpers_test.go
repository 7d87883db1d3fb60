package garanti

import (
	"github.com/kevin07696/booking-payment-service/internal/domain"
)

func testConfig() Config {
	cfg := DefaultConfig(ModeTest)
	cfg.TerminalID = testTerminalID
	cfg.MerchantID = "7000679"
	cfg.UserID = "PROVAUT"
	cfg.SuccessURL = testSuccessURL
	cfg.ErrorURL = testErrorURL
	cfg.CompanyName = "Travel Co"
	return cfg
}

func testCredentials() Credentials {
	return Credentials{
		ProvisionPassword: testPassword,
		UserPassword:      testPassword,
		StoreKey:          testStoreKey,
	}
}

func saleRequest() *domain.PaymentRequest {
	return &domain.PaymentRequest{
		Amount:        10000,
		Currency:      domain.CurrencyTRY,
		Kind:          domain.KindSale,
		CustomerEmail: "ayse@example.com",
		CustomerIP:    "192.168.1.10",
		OrderID:       testOrderID,
		Card: &domain.Card{
			HolderName:  "Ayse Yilmaz",
			Number:      testPAN,
			ExpireMonth: "12",
			ExpireYear:  "30",
			CVV:         "123",
		},
	}
}

func refundRequest(amount domain.Amount) *domain.PaymentRequest {
	return &domain.PaymentRequest{
		Amount:        amount,
		Currency:      domain.CurrencyTRY,
		Kind:          domain.KindRefund,
		CustomerEmail: "ayse@example.com",
		CustomerIP:    "192.168.1.10",
		OrderID:       testOrderID,
	}
}

const approvedResponseXML = `<?xml version="1.0" encoding="UTF-8"?>
<GVPSResponse>
  <Mode>TEST</Mode>
  <Order><OrderID>GRN_1718000000000_K12345</OrderID><GroupID></GroupID></Order>
  <Transaction>
    <Response>
      <Source>HOST</Source>
      <Code>00</Code>
      <ReasonCode>00</ReasonCode>
      <Message>Approved</Message>
      <ErrorMsg></ErrorMsg>
      <SysErrMsg></SysErrMsg>
    </Response>
    <RetrefNum>415312345678</RetrefNum>
    <AuthCode>304919</AuthCode>
    <BatchNum>004951</BatchNum>
    <SequenceNum>000008</SequenceNum>
    <ProvDate>20260301 12:00:00</ProvDate>
  </Transaction>
</GVPSResponse>`

func declinedResponseXML(code, message string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<GVPSResponse>
  <Order><OrderID>GRN_1718000000000_K12345</OrderID></Order>
  <Transaction>
    <Response>
      <Source>HOST</Source>
      <Code>` + code + `</Code>
      <ReasonCode>` + code + `</ReasonCode>
      <Message>Declined</Message>
      <ErrorMsg>` + message + `</ErrorMsg>
    </Response>
    <RetrefNum>415312345679</RetrefNum>
  </Transaction>
</GVPSResponse>`
}
