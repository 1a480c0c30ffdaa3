// Package auth verifies signed API requests: timestamp freshness,
// identity consistency between the transmitted signing key and the
// public key, and the HMAC signature itself.
package auth

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/upass-project/upass/internal/common"
	"github.com/upass-project/upass/internal/cryptox"
)

// nowFn is a test seam for the replay-window clock.
var nowFn = time.Now

// Credentials are the authentication fields of a signed request.
type Credentials struct {
	PublicKey  string
	SigningKey string
	Timestamp  int64
	Signature  string
}

// Verify checks the credentials against the canonical message:
//
//  1. The timestamp must be within tolerance of server time, in either
//     direction (replay window).
//  2. The transmitted signing key must hash to the transmitted public
//     key, so the two fields cannot be mixed from different accounts.
//  3. The signature must be a valid HMAC tag over message under the
//     signing key, compared in constant time.
//
// Failures are reported as common.ErrValidation for malformed fields
// and common.ErrUnauthorized for everything else, so handlers leak
// nothing about which check failed beyond the status code.
func Verify(creds Credentials, message []byte, tolerance time.Duration) error {
	skew := nowFn().Unix() - creds.Timestamp
	if skew < 0 {
		skew = -skew
	}
	if time.Duration(skew)*time.Second > tolerance {
		return fmt.Errorf("%w: timestamp outside replay window", common.ErrUnauthorized)
	}

	seed, err := base64.StdEncoding.DecodeString(creds.SigningKey)
	if err != nil || len(seed) == 0 {
		return fmt.Errorf("%w: malformed signing key", common.ErrValidation)
	}

	if cryptox.PublicIdentity(seed) != creds.PublicKey {
		return fmt.Errorf("%w: signing key does not match public key", common.ErrUnauthorized)
	}

	if !cryptox.VerifySignature(message, seed, creds.Signature) {
		return fmt.Errorf("%w: invalid signature", common.ErrUnauthorized)
	}
	return nil
}
