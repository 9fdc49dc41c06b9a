package resources

// Registration holds one account's registration with the ACME server.
//
// The URL field is the stable registration URL assigned by the server in
// the Location header of the first new-reg response. It identifies the
// account for all subsequent reg updates and is never changed by the
// server. The TermsOfService field carries the current terms-of-service
// URL from the response's Link rel="terms-of-service" header; comparing it
// against Agreement shows whether the account has agreed to the latest
// terms.
type Registration struct {
	Resource string `json:"resource,omitempty"`
	// Contact URIs for the account ("mailto:", "tel:").
	Contact []string `json:"contact,omitempty"`
	// The terms-of-service URL the account has agreed to, if any.
	Agreement string `json:"agreement,omitempty"`
	// URL of the account's authorizations collection, when provided.
	Authorizations string `json:"authorizations,omitempty"`
	// URL of the account's certificates collection, when provided.
	Certificates string `json:"certificates,omitempty"`

	// Server-assigned registration URL, from the Location header.
	URL string `json:"-"`
	// Current terms-of-service URL, from the Link rel="terms-of-service" header.
	TermsOfService string `json:"-"`
}

// TermsAgreed reports whether the account has agreed to the terms of
// service most recently advertised by the server.
func (r *Registration) TermsAgreed() bool {
	return r.Agreement != "" && r.Agreement == r.TermsOfService
}
