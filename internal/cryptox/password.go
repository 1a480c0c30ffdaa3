package cryptox

import (
	"crypto/rand"
	"math/big"
)

const (
	passwordLower    = "abcdefghijklmnopqrstuvwxyz"
	passwordUpper    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	passwordDigits   = "0123456789"
	passwordSpecials = "!@#$%^&*-_=+"
)

func randIndex(n int) int {
	i, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(err)
	}
	return int(i.Int64())
}

// GeneratePassword returns a random password of the given length with at
// least one lowercase letter, one uppercase letter and one digit, plus
// one special character when specials is true. Lengths below 4 are
// raised to 4. All randomness comes from the CSPRNG and the result is
// shuffled so the guaranteed classes land at unpredictable positions.
func GeneratePassword(length int, specials bool) string {
	if length < 4 {
		length = 4
	}

	alphabet := passwordLower + passwordUpper + passwordDigits
	password := []byte{
		passwordLower[randIndex(len(passwordLower))],
		passwordUpper[randIndex(len(passwordUpper))],
		passwordDigits[randIndex(len(passwordDigits))],
	}
	if specials {
		password = append(password, passwordSpecials[randIndex(len(passwordSpecials))])
		alphabet += passwordSpecials
	}

	for len(password) < length {
		password = append(password, alphabet[randIndex(len(alphabet))])
	}

	// Fisher-Yates with CSPRNG indices.
	for i := len(password) - 1; i > 0; i-- {
		j := randIndex(i + 1)
		password[i], password[j] = password[j], password[i]
	}

	return string(password)
}
