package detect

import (
	"fmt"
	"math/big"
	"strings"
)

// luhnValid checks whether a digit string passes the Luhn algorithm (ISO/IEC 7812).
func luhnValid(number string) bool {
	n := len(number)
	if n < 2 {
		return false
	}
	sum := 0
	alt := false
	for i := n - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if alt {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		alt = !alt
	}
	return sum%10 == 0
}

// validIBANChecksum verifies the MOD-97 check digits per ISO 13616.
// The IBAN is rearranged (country+check moved to end) and converted to
// digits (A=10 .. Z=35), then the remainder mod 97 must equal 1.
func validIBANChecksum(iban string) bool {
	if len(iban) < 5 {
		return false
	}
	rearranged := iban[4:] + iban[:4]
	var numStr strings.Builder
	for _, ch := range rearranged {
		switch {
		case ch >= '0' && ch <= '9':
			numStr.WriteRune(ch)
		case ch >= 'A' && ch <= 'Z':
			numStr.WriteString(fmt.Sprintf("%d", ch-'A'+10))
		default:
			return false
		}
	}
	n := new(big.Int)
	if _, ok := n.SetString(numStr.String(), 10); !ok {
		return false
	}
	mod := new(big.Int)
	mod.Mod(n, big.NewInt(97))
	return mod.Int64() == 1
}

// ibanLengths maps ISO 3166 country codes to the IBAN length registered for
// that country (ISO 13616 registry, common subset).
var ibanLengths = map[string]int{
	"AD": 24, "AT": 20, "BE": 16, "BG": 22, "CH": 21, "CY": 28,
	"CZ": 24, "DE": 22, "DK": 18, "EE": 20, "ES": 24, "FI": 18,
	"FR": 27, "GB": 22, "GR": 27, "HR": 21, "HU": 28, "IE": 22,
	"IS": 26, "IT": 27, "LI": 21, "LT": 20, "LU": 20, "LV": 21,
	"MC": 27, "MT": 31, "NL": 18, "NO": 15, "PL": 28, "PT": 25,
	"RO": 24, "SE": 24, "SI": 19, "SK": 24, "SM": 27,
}

// validIBANLength checks that the IBAN has the correct length for its country code.
func validIBANLength(iban string) bool {
	if len(iban) < 2 {
		return false
	}
	expected, ok := ibanLengths[iban[:2]]
	if !ok {
		return false
	}
	return len(iban) == expected
}

// stripNonDigits removes all non-digit characters from s.
func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}
