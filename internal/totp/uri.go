package totp

import (
	"net/url"
	"strconv"
	"strings"
)

// Key is the result of parsing an otpauth:// provisioning URI.
type Key struct {
	Secret    string
	Account   string
	Digits    int
	Period    int
	Algorithm string
}

// ParseURI parses an otpauth://totp/ URI as produced by most
// authenticator enrollment flows:
//
//	otpauth://totp/<label>?secret=...&digits=...&period=...&algorithm=...
//
// A label of the form "Issuer:account" keeps only the account part; the
// issuer prefix is discarded. URIs without a usable secret yield nil.
func ParseURI(uri string) *Key {
	if !strings.HasPrefix(uri, "otpauth://totp/") {
		return nil
	}
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "otpauth" || u.Host != "totp" {
		return nil
	}

	label := strings.TrimPrefix(u.Path, "/")
	account := label
	if i := strings.Index(label, ":"); i >= 0 {
		account = label[i+1:]
	}

	q := u.Query()
	secret := q.Get("secret")
	if secret == "" {
		return nil
	}

	key := &Key{
		Secret:    secret,
		Account:   account,
		Digits:    DefaultDigits,
		Period:    DefaultPeriod,
		Algorithm: "SHA1",
	}
	if d, err := strconv.Atoi(q.Get("digits")); err == nil && d > 0 {
		key.Digits = d
	}
	if p, err := strconv.Atoi(q.Get("period")); err == nil && p > 0 {
		key.Period = p
	}
	if a := q.Get("algorithm"); a != "" {
		key.Algorithm = strings.ToUpper(a)
	}
	return key
}
