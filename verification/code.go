// Package verification implements the email verification code: a 6-character
// value drawn from the uppercase-alphanumeric alphabet. Codes are compared by
// exact string equality; no case folding or whitespace trimming is applied
// anywhere, so a code only ever matches the exact string that was issued.
package verification

import (
	"crypto/rand"
	"math/big"
	"regexp"

	"github.com/user/zwitter-go/apperror"
)

// Length is the number of characters in a verification code.
const Length = 6

// alphabet is the set of characters a code is drawn from, 36 in total.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// Code is a valid verification code. The zero value is not valid; obtain a
// Code through New or Parse.
type Code string

// New generates a fresh code sampled uniformly from the 36^6 code space using
// the platform CSPRNG. Uniformity is the only unpredictability guarantee.
func New() (Code, error) {
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, Length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", apperror.NewUnexpectedError("VERIFICATION_CODE_RAND", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return Code(buf), nil
}

// Parse validates s as a verification code. It succeeds only for exactly six
// characters of [A-Z0-9]; anything else fails with a validation error keyed
// on the code field.
func Parse(s string) (Code, error) {
	if !codePattern.MatchString(s) {
		return "", apperror.NewValidationError("EMAIL_VERIFICATION_CODE", map[string][]string{
			"code": {"must be exactly 6 uppercase alphanumeric characters"},
		})
	}
	return Code(s), nil
}

// String returns the code's string form.
func (c Code) String() string {
	return string(c)
}
