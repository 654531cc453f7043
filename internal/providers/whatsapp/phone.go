package whatsapp

import (
	"fmt"
	"strings"
	"unicode"
)

const brazilCountryCode = "55"

// NormalizePhone returns the international digits-only form the Cloud API
// expects. Ten or eleven digit numbers are taken as Brazilian (area code +
// number) and get the country code prepended.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	phone := strings.TrimLeft(b.String(), "0")

	if len(phone) == 10 || len(phone) == 11 {
		phone = brazilCountryCode + phone
	}
	if len(phone) < 12 || len(phone) > 15 {
		return "", fmt.Errorf("%w: %d digits", ErrInvalidPhone, len(phone))
	}
	return phone, nil
}
