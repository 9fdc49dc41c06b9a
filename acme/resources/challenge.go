package resources

import (
	"encoding/json"

	"github.com/ebekker/acmekit/acme"
)

// Challenge is one server-offered proof method within an Authorization.
// Everything except the Status, Validated and Error fields is immutable
// once received; those three are refreshed from polling.
type Challenge struct {
	Resource string `json:"resource,omitempty"`
	// The challenge type ("dns", "http", "tls-sni", or a CA extension).
	Type string `json:"type"`
	// The server-assigned URI the answer is submitted to. Answers go to
	// this URI, not to the authorization URL.
	URI string `json:"uri"`
	// The status of this single challenge.
	Status string `json:"status,omitempty"`
	// RFC 3339 validation timestamp, set once the server validated the answer.
	Validated string `json:"validated,omitempty"`
	// The random token the key authorization is derived from.
	Token string `json:"token,omitempty"`
	// The server's reason for an invalid challenge.
	Error *Problem `json:"error,omitempty"`
}

// String returns the challenge's submission URI.
func (c Challenge) String() string {
	return c.URI
}

// update refreshes the mutable fields from a newer copy of the same
// challenge without discarding fields the refresh payload omitted.
func (c *Challenge) update(from *Challenge) {
	if from.Status != "" {
		c.Status = from.Status
	}
	if from.Validated != "" {
		c.Validated = from.Validated
	}
	if from.Error != nil {
		c.Error = from.Error
	}
	if from.Token != "" {
		c.Token = from.Token
	}
}

// Answer is the payload POSTed to a challenge URI to prove control of the
// account key. KeyAuthorization is required for every known challenge
// type; Extra carries CA-specific members for forward compatibility.
type Answer struct {
	Resource string `json:"resource"`
	Type     string `json:"type,omitempty"`
	// token + "." + base64url(SHA256(canonical JWK)).
	KeyAuthorization string `json:"keyAuthorization"`
	// Extra members for CA-specific challenge types, flattened into the
	// object during marshaling. Nil for the standard types. Extra members
	// never override the fixed fields.
	Extra map[string]any `json:"-"`
}

func (a *Answer) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"resource":         a.Resource,
		"keyAuthorization": a.KeyAuthorization,
	}
	if a.Type != "" {
		m["type"] = a.Type
	}
	for k, v := range a.Extra {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

// NewAnswer builds an Answer for a challenge with the given key authorization.
func NewAnswer(challType, keyAuthorization string) *Answer {
	return &Answer{
		Resource:         acme.CHALLENGE_RESOURCE,
		Type:             challType,
		KeyAuthorization: keyAuthorization,
	}
}
