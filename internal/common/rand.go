package common

import "crypto/rand"

// GenerateRandByteArray returns size bytes from the CSPRNG.
// It panics if the system's entropy source fails, which is not
// a recoverable condition for a crypto application.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}
