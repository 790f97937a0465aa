package utils

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

// QRCodeLength is the number of hex characters in a ticket code.
const QRCodeLength = 12

const resetAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewQRCode returns a random lowercase hex ticket code.
func NewQRCode() (string, error) {
	return randomHex(QRCodeLength / 2)
}

// NewResetToken returns a 64 character token drawn from [a-z0-9].
func NewResetToken() (string, error) {
	return randomString(64, resetAlphabet)
}

// NewRandomPassword returns a throwaway password for accounts created via
// an external identity provider.  Nobody is ever told this value.
func NewRandomPassword() (string, error) {
	return randomHex(24)
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func randomString(n int, alphabet string) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		k, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[k.Int64()]
	}
	return string(out), nil
}
