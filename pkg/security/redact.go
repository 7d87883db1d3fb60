package security

import (
	"regexp"
	"strings"
)

var (
	gatewaySecretElements = regexp.MustCompile(`(?s)<(Number|CVV2|ExpireDate|HashData)>.*?</(Number|CVV2|ExpireDate|HashData)>`)
	panLike               = regexp.MustCompile(`\b(\d{4})\d{5,11}(\d{4})\b`)
)

// RedactGatewayXML blanks card and signature elements so raw gateway
// documents can be logged.
func RedactGatewayXML(doc string) string {
	return gatewaySecretElements.ReplaceAllStringFunc(doc, func(m string) string {
		open := m[:strings.Index(m, ">")+1]
		return open + "[REDACTED]" + "</" + open[1:]
	})
}

// RedactPAN masks anything that looks like a card number inside free text
func RedactPAN(s string) string {
	return panLike.ReplaceAllString(s, "$1****$2")
}

// RedactForm masks card fields in a gateway form field map
func RedactForm(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		switch k {
		case "cardnumber":
			out[k] = RedactPAN(v)
		case "cardcvv2", "cardexpiredatemonth", "cardexpiredateyear", "secure3dhash", "hash":
			out[k] = "[REDACTED]"
		default:
			out[k] = v
		}
	}
	return out
}
