package garanti

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// ErrUnencodable is returned when a value has runes outside ISO-8859-15
var ErrUnencodable = errors.New("value not representable in ISO-8859-15")

// Charset is the single-byte charset the gateway hashes and parses with
const Charset = "ISO-8859-15"

func toLatin9(s string) ([]byte, error) {
	b, err := charmap.ISO8859_15.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnencodable, err)
	}
	return b, nil
}

// charsetReader lets encoding/xml decode the charsets the gateway has been seen to declare
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8":
		return input, nil
	case "iso-8859-15", "iso8859-15", "latin9", "latin-9":
		return charmap.ISO8859_15.NewDecoder().Reader(input), nil
	case "iso-8859-9", "iso8859-9", "latin5":
		return charmap.ISO8859_9.NewDecoder().Reader(input), nil
	case "iso-8859-1", "iso8859-1", "latin1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1254", "cp1254":
		return charmap.Windows1254.NewDecoder().Reader(input), nil
	}
	return nil, fmt.Errorf("unsupported response charset %q", label)
}
