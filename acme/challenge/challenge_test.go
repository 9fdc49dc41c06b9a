package challenge

import (
	"crypto/x509"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebekker/acmekit/acme"
	"github.com/ebekker/acmekit/acme/keys"
	"github.com/ebekker/acmekit/acme/resources"
)

func TestPrepareDNS(t *testing.T) {
	signer, err := keys.NewSigner("ecdsa")
	require.NoError(t, err)

	part := &resources.Challenge{
		Type:  TypeDNS,
		URI:   "https://acme.example.com/chall/1",
		Token: "dns-token",
	}
	ans, err := Prepare(part, signer, "example.com")
	require.NoError(t, err)

	dnsAns, ok := ans.(*DNSAnswer)
	require.True(t, ok, "expected a *DNSAnswer, got %T", ans)
	assert.Equal(t, "_acme-challenge.example.com.", dnsAns.RecordName)
	assert.Equal(t, keys.KeyAuth(signer, "dns-token"), dnsAns.KeyAuthorization())
	assert.Equal(t, keys.KeyAuthDigest(dnsAns.KeyAuthorization()), dnsAns.RecordValue)

	payload := dnsAns.Payload()
	assert.Equal(t, acme.CHALLENGE_RESOURCE, payload.Resource)
	assert.Equal(t, TypeDNS, payload.Type)
	assert.Equal(t, dnsAns.KeyAuthorization(), payload.KeyAuthorization)
}

func TestPrepareHTTP(t *testing.T) {
	signer, err := keys.NewSigner("rsa")
	require.NoError(t, err)

	part := &resources.Challenge{
		Type:  TypeHTTP,
		URI:   "https://acme.example.com/chall/2",
		Token: "http-token",
	}
	ans, err := Prepare(part, signer, "example.com")
	require.NoError(t, err)

	httpAns, ok := ans.(*HTTPAnswer)
	require.True(t, ok, "expected an *HTTPAnswer, got %T", ans)
	assert.Equal(t, "/.well-known/acme-challenge/http-token", httpAns.Path)
	assert.Equal(t, httpAns.KeyAuthorization(), httpAns.Body,
		"the served body must be exactly the key authorization")
}

func TestPrepareTLSSNI(t *testing.T) {
	signer, err := keys.NewSigner("ecdsa")
	require.NoError(t, err)

	part := &resources.Challenge{
		Type:  TypeTLSSNI,
		URI:   "https://acme.example.com/chall/3",
		Token: "sni-token",
	}
	ans, err := Prepare(part, signer, "example.com")
	require.NoError(t, err)

	sniAns, ok := ans.(*TLSSNIAnswer)
	require.True(t, ok, "expected a *TLSSNIAnswer, got %T", ans)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}\.[0-9a-f]{32}\.acme\.invalid$`),
		sniAns.ValidationName)

	cert, err := TLSSNICertificate(sniAns, signer)
	require.NoError(t, err)
	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	assert.Contains(t, parsed.DNSNames, sniAns.ValidationName)
}

func TestPrepareUnknownType(t *testing.T) {
	signer, err := keys.NewSigner("ecdsa")
	require.NoError(t, err)

	part := &resources.Challenge{
		Type:  "proofOfPossession",
		URI:   "https://acme.example.com/chall/4",
		Token: "pop-token",
	}
	ans, err := Prepare(part, signer, "example.com")
	require.NoError(t, err)

	_, ok := ans.(*GenericAnswer)
	require.True(t, ok, "expected a *GenericAnswer, got %T", ans)
	assert.Equal(t, keys.KeyAuth(signer, "pop-token"), ans.KeyAuthorization())
}

func TestPrepareNoToken(t *testing.T) {
	signer, err := keys.NewSigner("ecdsa")
	require.NoError(t, err)

	part := &resources.Challenge{
		Type: TypeHTTP,
		URI:  "https://acme.example.com/chall/5",
	}
	_, err = Prepare(part, signer, "example.com")
	require.Error(t, err)
	var stateErr *acme.StateError
	assert.True(t, errors.As(err, &stateErr), "error %v is not a StateError", err)
}

func TestHandlerRegistry(t *testing.T) {
	types := HandlerTypes()
	assert.Contains(t, types, TypeDNS)
	assert.Contains(t, types, TypeHTTP)

	_, err := NewHandler("tls-alpn", nil)
	assert.Error(t, err, "unregistered type must fail")
}
