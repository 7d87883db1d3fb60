package domain

// GatewayCallback is a validated, normalized redirect-flow callback
type GatewayCallback struct {
	OrderID      string
	Response     string
	ReturnCode   string
	AuthCode     string
	MDStatus     string
	HostRefNum   string
	MaskedPAN    string
	ErrorMessage string
	Amount       Amount
	Currency     Currency
	// HashVerified is true when the callback carried a signature that matched.
	HashVerified bool
}
