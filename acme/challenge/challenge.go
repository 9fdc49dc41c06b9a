// Package challenge provides typed client-side views of ACME challenges,
// key authorization computation and a registry of pluggable handlers that
// publish the proof material for each challenge type.
package challenge

import (
	"crypto"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ebekker/acmekit/acme"
	"github.com/ebekker/acmekit/acme/keys"
	"github.com/ebekker/acmekit/acme/resources"
)

// Challenge type names used by v1 servers.
const (
	TypeDNS    = "dns"
	TypeHTTP   = "http"
	TypeTLSSNI = "tls-sni"
)

const (
	// Where an http challenge body must be served.
	WellKnownPathPrefix = "/.well-known/acme-challenge/"
	// The DNS label prefixed to the identifier for a dns challenge TXT record.
	DNSRecordPrefix = "_acme-challenge."
	// The synthetic domain suffix for tls-sni validation names.
	TLSSNISuffix = "acme.invalid"
)

// Answer is a decoded, type-specific view of one challenge, carrying the
// response material the host must publish before submission. Concrete
// implementations exist per known challenge type plus GenericAnswer for
// unknown CA-specific types.
type Answer interface {
	// The challenge type this answer responds to.
	Type() string
	// The computed key authorization string.
	KeyAuthorization() string
	// The challenge this answer responds to.
	Part() *resources.Challenge
	// The payload to POST to the challenge URI.
	Payload() *resources.Answer
}

type answerBase struct {
	part    resources.Challenge
	keyAuth string
}

func (a *answerBase) Type() string               { return a.part.Type }
func (a *answerBase) KeyAuthorization() string   { return a.keyAuth }
func (a *answerBase) Part() *resources.Challenge { return &a.part }

func (a *answerBase) Payload() *resources.Answer {
	return resources.NewAnswer(a.part.Type, a.keyAuth)
}

// DNSAnswer responds to a dns challenge. The digest of the key
// authorization is published as a TXT record under the identifier.
type DNSAnswer struct {
	answerBase
	// Fully qualified TXT record name, "_acme-challenge.<identifier>."
	RecordName string
	// base64url SHA-256 digest of the key authorization.
	RecordValue string
}

// HTTPAnswer responds to an http challenge. The key authorization is
// served as the body of a well-known path on port 80.
type HTTPAnswer struct {
	answerBase
	// Request path the CA fetches, derived from the token.
	Path string
	// Exact body to serve: the key authorization.
	Body string
}

// TLSSNIAnswer responds to a tls-sni challenge. The CA connects with SNI
// set to a name derived from the key authorization and expects a
// self-signed certificate containing that name.
type TLSSNIAnswer struct {
	answerBase
	// The synthetic SAN the validation certificate must contain.
	ValidationName string
}

// GenericAnswer responds to a challenge type this package does not know.
// Only the key authorization is computed; any type-specific members must
// be supplied through the payload's Extra map by the caller.
type GenericAnswer struct {
	answerBase
}

// Prepare computes the typed answer for one challenge using the account
// key. The identifier is the domain the enclosing authorization names; it
// is needed for record naming and not carried inside the challenge itself.
// A challenge without a token cannot be answered yet and fails with a
// StateError.
func Prepare(part *resources.Challenge, signer crypto.Signer, identifier string) (Answer, error) {
	if part.Token == "" {
		return nil, &acme.StateError{
			Op:     "challenge.Prepare",
			Reason: fmt.Sprintf("challenge %q has no token yet", part.URI),
		}
	}

	base := answerBase{part: *part, keyAuth: keys.KeyAuth(signer, part.Token)}
	switch part.Type {
	case TypeDNS:
		return &DNSAnswer{
			answerBase:  base,
			RecordName:  DNSRecordPrefix + identifier + ".",
			RecordValue: keys.KeyAuthDigest(base.keyAuth),
		}, nil
	case TypeHTTP:
		return &HTTPAnswer{
			answerBase: base,
			Path:       WellKnownPathPrefix + part.Token,
			Body:       base.keyAuth,
		}, nil
	case TypeTLSSNI:
		z := hex.EncodeToString(hashBytes(base.keyAuth))
		return &TLSSNIAnswer{
			answerBase:     base,
			ValidationName: fmt.Sprintf("%s.%s.%s", z[:32], z[32:64], TLSSNISuffix),
		}, nil
	}
	return &GenericAnswer{answerBase: base}, nil
}

func hashBytes(s string) []byte {
	sum := sha256.Sum256([]byte(s))
	return sum[:]
}
