package acme

import (
	"encoding/base64"
	"strings"
)

// Base64URLEncode encodes data using the URL-safe base64 alphabet from RFC
// 4648 section 5 with the trailing padding stripped, as required for JWS
// fields and key authorizations.
func Base64URLEncode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// Base64URLDecode reverses Base64URLEncode. Padded input is accepted. An
// encoded length congruent to 1 mod 4 can never result from base64 encoding
// and is rejected with a FormatError, as is any character outside the
// URL-safe alphabet.
func Base64URLDecode(encoded string) ([]byte, error) {
	trimmed := strings.TrimRight(encoded, "=")
	if len(trimmed)%4 == 1 {
		return nil, &FormatError{
			Payload: encoded,
			Reason:  "invalid base64url length",
		}
	}
	data, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, &FormatError{
			Payload: encoded,
			Reason:  "invalid base64url data",
			Err:     err,
		}
	}
	return data, nil
}
