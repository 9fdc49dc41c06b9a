package resources

import (
	"encoding/json"
	"time"

	"github.com/ebekker/acmekit/acme"
)

// DERData is raw DER-encoded data that travels as base64url in JSON.
type DERData []byte

func (d DERData) MarshalJSON() ([]byte, error) {
	return json.Marshal(acme.Base64URLEncode(d))
}

func (d *DERData) UnmarshalJSON(bs []byte) error {
	var s string
	if err := json.Unmarshal(bs, &s); err != nil {
		return err
	}
	decoded, err := acme.Base64URLDecode(s)
	if err != nil {
		return err
	}
	*(*[]byte)(d) = decoded
	return nil
}

// CertificateRequest tracks one new-cert submission from the initial POST
// through polling to the downloaded certificate. The zero Certificate
// field means issuance is still in progress and URL should be polled,
// waiting at least RetryAfter between polls.
type CertificateRequest struct {
	// The DER-encoded CSR that was submitted.
	CSR DERData
	// HTTP status of the most recent exchange.
	StatusCode int
	// The certificate's URL, from the Location header. Polled until the
	// certificate is issued; remains the canonical URL afterwards.
	URL string
	// Minimum delay before the next poll, from the Retry-After header.
	RetryAfter time.Duration
	// The issued certificate in DER form, empty until issuance completes.
	Certificate []byte
	// URL of the issuer certificate, from the Link rel="up" header.
	IssuerURL string
}

// Issued reports whether the certificate has been downloaded.
func (r *CertificateRequest) Issued() bool {
	return len(r.Certificate) > 0
}
