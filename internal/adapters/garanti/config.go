package garanti

import "time"

// Mode selects the gateway environment
type Mode string

const (
	ModeTest Mode = "TEST"
	ModeProd Mode = "PROD"
)

const (
	apiVersion    = "v0.01"
	securityLevel = "3D_PAY"

	motoIndicatorSale   = "N"
	motoIndicatorRefund = "H"
)

// Config holds the terminal identity and endpoints
type Config struct {
	Mode             Mode
	TerminalID       string
	MerchantID       string
	UserID           string
	ProvUserID       string
	RefundProvUserID string

	RedirectURL string
	APIURL      string
	SuccessURL  string
	ErrorURL    string
	CompanyName string
	Lang        string

	Timeout    time.Duration
	MaxRetries int
}

// Credentials are the terminal secrets. They never leave the process.
type Credentials struct {
	ProvisionPassword string
	UserPassword      string
	StoreKey          string
}

// DefaultConfig returns endpoints and defaults for the given mode
func DefaultConfig(mode Mode) Config {
	cfg := Config{
		Mode:             mode,
		ProvUserID:       "PROVAUT",
		RefundProvUserID: "PROVRFN",
		Lang:             "tr",
		Timeout:          30 * time.Second,
		MaxRetries:       2,
	}
	if mode == ModeProd {
		cfg.RedirectURL = "https://sanalposprov.garanti.com.tr/servlet/gt3dengine"
		cfg.APIURL = "https://sanalposprov.garanti.com.tr/VPServlet"
	} else {
		cfg.Mode = ModeTest
		cfg.RedirectURL = "https://sanalposprovtest.garantibbva.com.tr/servlet/gt3dengine"
		cfg.APIURL = "https://sanalposprovtest.garantibbva.com.tr/VPServlet"
	}
	return cfg
}
