// Package totp implements RFC 6238 time-based one-time passwords for
// stored two-factor secrets, plus parsing of otpauth:// provisioning
// URIs. It is independent of the vault sync protocol.
package totp

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"strings"
	"time"
)

const (
	// DefaultPeriod is the RFC 6238 default time step in seconds.
	DefaultPeriod = 30
	// DefaultDigits is the default code length.
	DefaultDigits = 6

	// minSecretBytes is the minimum decoded secret length (80 bits).
	minSecretBytes = 10
)

var (
	ErrInvalidSecret    = errors.New("invalid totp secret")
	ErrInvalidAlgorithm = errors.New("invalid totp algorithm")
)

// Params controls code generation. The zero value is not usable; start
// from DefaultParams.
type Params struct {
	Period    int    // time step in seconds
	Digits    int    // code length
	Algorithm string // SHA1, SHA256 or SHA512
}

// DefaultParams returns the parameters virtually every authenticator
// uses: SHA1, 6 digits, 30-second period.
func DefaultParams() Params {
	return Params{Period: DefaultPeriod, Digits: DefaultDigits, Algorithm: "SHA1"}
}

func hashFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "", "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidAlgorithm, algorithm)
	}
}

// DecodeSecret decodes a Base32 secret. Spaces are ignored and lowercase
// input is accepted; any other character outside the RFC 4648 alphabet
// is rejected. Missing padding is tolerated.
func DecodeSecret(secret string) ([]byte, error) {
	s := strings.ToUpper(strings.ReplaceAll(secret, " ", ""))
	if rem := len(s) % 8; rem != 0 {
		s += strings.Repeat("=", 8-rem)
	}
	key, err := base32.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	return key, nil
}

// ValidSecret reports whether secret decodes to at least 80 bits of key
// material.
func ValidSecret(secret string) bool {
	key, err := DecodeSecret(secret)
	return err == nil && len(key) >= minSecretBytes
}

// Generate computes the TOTP code for the given secret at the given time.
func Generate(secret string, at time.Time, p Params) (string, error) {
	key, err := DecodeSecret(secret)
	if err != nil {
		return "", err
	}
	if p.Period <= 0 {
		p.Period = DefaultPeriod
	}
	if p.Digits <= 0 {
		p.Digits = DefaultDigits
	}
	counter := uint64(at.Unix() / int64(p.Period))
	return hotp(key, counter, p.Digits, p.Algorithm)
}

// hotp computes the RFC 4226 value for an 8-byte big-endian counter with
// dynamic truncation.
func hotp(key []byte, counter uint64, digits int, algorithm string) (string, error) {
	h, err := hashFunc(algorithm)
	if err != nil {
		return "", err
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], counter)

	mac := hmac.New(h, key)
	mac.Write(buf[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0F
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7FFFFFFF

	mod := uint32(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", digits, value%mod), nil
}

// RemainingSeconds returns how long the code for the current time step
// stays valid.
func RemainingSeconds(at time.Time, period int) int {
	if period <= 0 {
		period = DefaultPeriod
	}
	return period - int(at.Unix()%int64(period))
}

// FormatCode groups a 6-digit code for display ("123 456"). Other
// lengths are returned unchanged.
func FormatCode(code string) string {
	if len(code) == 6 {
		return code[:3] + " " + code[3:]
	}
	return code
}
