// Package acme provides ACME protocol constants and error types shared by
// the client packages. The protocol modeled here is the v1-shaped flow with
// independent new-reg, new-authz and new-cert resources.
package acme

const (
	// Directory resource names.
	// Every signed request body carries one of these in its "resource" member.

	// The directory key for the new-registration resource.
	NEW_REG_RESOURCE = "new-reg"
	// The directory key for the new-authorization resource.
	NEW_AUTHZ_RESOURCE = "new-authz"
	// The directory key for the new-certificate resource.
	NEW_CERT_RESOURCE = "new-cert"
	// The directory key for the certificate revocation resource.
	REVOKE_CERT_RESOURCE = "revoke-cert"
	// The directory key for the non-standard issuer certificate resource.
	ISSUER_CERT_RESOURCE = "issuer-cert"

	// Resource values for requests addressed to existing resources rather
	// than the "new-*" collection endpoints.
	REG_RESOURCE       = "reg"
	AUTHZ_RESOURCE     = "authz"
	CHALLENGE_RESOURCE = "challenge"

	// The HTTP response header used by the server to communicate a fresh
	// single-use nonce with every exchange.
	REPLAY_NONCE_HEADER = "Replay-Nonce"
	// The HTTP response header carrying the URL of a newly created resource.
	LOCATION_HEADER = "Location"
	// The HTTP response header hinting the minimum delay before polling again.
	RETRY_AFTER_HEADER = "Retry-After"
	// The HTTP response header carrying typed relation links.
	LINK_HEADER = "Link"
)

// Content types used on the wire.
const (
	JSONContentType     = "application/json"
	ProblemContentType  = "application/problem+json"
	PKIXCertContentType = "application/pkix-cert"
)

// UpRelation is the Link header rel value identifying the issuer certificate.
const UpRelation = "up"

// Statuses reported for authorizations and challenges.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusValid      = "valid"
	StatusInvalid    = "invalid"
	StatusRevoked    = "revoked"
)

// TerminalStatus reports whether a status can never change again from the
// client's perspective. Revocation is server-initiated and only ever
// observed, never driven, so it is terminal too.
func TerminalStatus(status string) bool {
	switch status {
	case StatusValid, StatusInvalid, StatusRevoked:
		return true
	}
	return false
}

// Problem type URNs assigned by the CA.
const (
	errorNamespace    = "urn:acme:error:"
	ErrBadCSR         = errorNamespace + "badCSR"
	ErrBadNonce       = errorNamespace + "badNonce"
	ErrConnection     = errorNamespace + "connection"
	ErrMalformed      = errorNamespace + "malformed"
	ErrRateLimited    = errorNamespace + "rateLimited"
	ErrServerInternal = errorNamespace + "serverInternal"
	ErrTLS            = errorNamespace + "tls"
	ErrUnauthorized   = errorNamespace + "unauthorized"
	ErrUnknownHost    = errorNamespace + "unknownHost"
)

// Identifier types. In practice only DNS identifiers are supported by
// public servers.
const DNSIdentifier = "dns"
