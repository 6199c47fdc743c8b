package utils

import (
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Scan code parse failures. Both are caller errors and never retryable.
var (
	ErrInvalidFormat = errors.New("scan code does not match any accepted shape")
	ErrInvalidUUID   = errors.New("scan code does not carry a version-4 UUID")
)

// Warranty link hosts embedded in printed QR codes. The short domain is what
// newer labels carry; the long one is still in the field.
const (
	warrantyHostLong  = "warranty.example.com"
	warrantyHostShort = "w.example.com"
)

var uuidShape = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// ParseScanCode extracts the unit identifier from raw scanned text.
//
// Three shapes are accepted: the long-form warranty link
// (warranty.example.com/p/<uuid>), its short-domain equivalent
// (w.example.com/p/<uuid>), and a bare identifier. All three resolve through
// the same extraction path and the same strict v4 check: the version and
// RFC 4122 variant nibbles are verified, so a well-formed UUID of another
// version is ErrInvalidUUID, not a valid-but-unknown unit. Pure function.
func ParseScanCode(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", ErrInvalidFormat
	}

	token := text
	if strings.Contains(text, "/") {
		var ok bool
		token, ok = extractFromWarrantyLink(text)
		if !ok {
			return "", ErrInvalidFormat
		}
	}

	return validateUnitID(token)
}

// extractFromWarrantyLink pulls the path token out of a warranty URL. The
// scheme is optional because some printers strip it from the QR payload.
func extractFromWarrantyLink(text string) (string, bool) {
	rest := text
	if i := strings.Index(rest, "://"); i >= 0 {
		scheme := strings.ToLower(rest[:i])
		if scheme != "http" && scheme != "https" {
			return "", false
		}
		rest = rest[i+3:]
	}

	slash := strings.Index(rest, "/")
	if slash < 0 {
		return "", false
	}
	host := strings.ToLower(rest[:slash])
	path := strings.TrimSuffix(rest[slash:], "/")

	if host != warrantyHostLong && host != warrantyHostShort {
		return "", false
	}
	if !strings.HasPrefix(path, "/p/") {
		return "", false
	}
	token := path[len("/p/"):]
	if token == "" || strings.Contains(token, "/") {
		return "", false
	}
	return token, true
}

// validateUnitID checks the extracted token is a v4 random UUID and returns
// it in canonical lowercase form.
func validateUnitID(token string) (string, error) {
	if !uuidShape.MatchString(token) {
		return "", ErrInvalidFormat
	}
	u, err := uuid.Parse(token)
	if err != nil {
		return "", ErrInvalidUUID
	}
	if u.Version() != 4 || u.Variant() != uuid.RFC4122 {
		return "", ErrInvalidUUID
	}
	return strings.ToLower(token), nil
}
