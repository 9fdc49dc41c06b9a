// Package keys offers utility functions for working with account keys:
// crypto.Signers, JWKs, thumbprints, key authorizations and PEM/DER
// serialization.
package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"

	jose "github.com/go-jose/go-jose/v4"

	"github.com/ebekker/acmekit/acme"
)

// Default RSA modulus size for new account keys.
const DefaultRSABits = 2048

// SigAlgForKey returns the JWS signature algorithm matching the signer's
// key type. The reference account key is RSA, signed with RS256.
func SigAlgForKey(signer crypto.Signer) jose.SignatureAlgorithm {
	switch signer.(type) {
	case *rsa.PrivateKey:
		return jose.RS256
	case *ecdsa.PrivateKey:
		return jose.ES256
	}
	return "unknown"
}

// AlgorithmID returns the JWS "alg" identifier for the signer as a string.
func AlgorithmID(signer crypto.Signer) string {
	return string(SigAlgForKey(signer))
}

func algForKey(signer crypto.Signer) string {
	switch signer.(type) {
	case *rsa.PrivateKey:
		return "RSA"
	case *ecdsa.PrivateKey:
		return "ECDSA"
	}
	return "unknown"
}

// JWKForSigner returns the public JWK for the signer's key.
func JWKForSigner(signer crypto.Signer) jose.JSONWebKey {
	return jose.JSONWebKey{
		Key:       signer.Public(),
		Algorithm: algForKey(signer),
	}
}

// JWKJSON returns the JSON serialization of the signer's public JWK.
func JWKJSON(signer crypto.Signer) string {
	jwk := JWKForSigner(signer)
	jwkJSON, err := json.Marshal(&jwk)
	if err != nil {
		return ""
	}
	return string(jwkJSON)
}

// CanonicalJWKJSON returns the canonical JWK serialization of the signer's
// public key: only the required members, in lexicographic order, with no
// whitespace. The RFC 7638 thumbprint is defined over exactly these bytes.
func CanonicalJWKJSON(signer crypto.Signer) (string, error) {
	switch pub := signer.Public().(type) {
	case *rsa.PublicKey:
		e := exponentBytes(int64(pub.E))
		return fmt.Sprintf(`{"e":%q,"kty":"RSA","n":%q}`,
			acme.Base64URLEncode(e), acme.Base64URLEncode(pub.N.Bytes())), nil
	case *ecdsa.PublicKey:
		size := (pub.Curve.Params().BitSize + 7) / 8
		return fmt.Sprintf(`{"crv":%q,"kty":"EC","x":%q,"y":%q}`,
			pub.Curve.Params().Name,
			acme.Base64URLEncode(pub.X.FillBytes(make([]byte, size))),
			acme.Base64URLEncode(pub.Y.FillBytes(make([]byte, size)))), nil
	}
	return "", fmt.Errorf("unsupported public key type %T", signer.Public())
}

func exponentBytes(n int64) []byte {
	var out []byte
	for n > 0 {
		out = append([]byte{byte(n & 0xff)}, out...)
		n >>= 8
	}
	return out
}

// JWKThumbprintBytes returns the SHA-256 RFC 7638 thumbprint of the
// signer's public key.
func JWKThumbprintBytes(signer crypto.Signer) []byte {
	jwk := JWKForSigner(signer)
	thumbBytes, _ := jwk.Thumbprint(crypto.SHA256)
	return thumbBytes
}

// JWKThumbprint returns the base64url encoded SHA-256 thumbprint of the
// signer's public key.
func JWKThumbprint(signer crypto.Signer) string {
	return acme.Base64URLEncode(JWKThumbprintBytes(signer))
}

// KeyAuth computes the key authorization for a challenge token:
// token + "." + base64url(SHA256(canonical JWK)).
func KeyAuth(signer crypto.Signer, token string) string {
	return fmt.Sprintf("%s.%s", token, JWKThumbprint(signer))
}

// KeyAuthDigest computes the base64url SHA-256 digest of a key
// authorization. Some challenge types publish this digest instead of the
// key authorization itself (the dns TXT record value).
func KeyAuthDigest(keyAuth string) string {
	sum := sha256.Sum256([]byte(keyAuth))
	return acme.Base64URLEncode(sum[:])
}

// MarshalSigner serializes a private key to DER along with a type tag that
// UnmarshalSigner uses to pick the right parser.
func MarshalSigner(signer crypto.Signer) ([]byte, string, error) {
	var keyBytes []byte
	var keyType string
	var err error
	switch k := signer.(type) {
	case *rsa.PrivateKey:
		keyType = "rsa"
		keyBytes = x509.MarshalPKCS1PrivateKey(k)
	case *ecdsa.PrivateKey:
		keyType = "ecdsa"
		keyBytes, err = x509.MarshalECPrivateKey(k)
	default:
		err = fmt.Errorf("signer was unknown type: %T", k)
	}
	if err != nil {
		return nil, "", err
	}
	return keyBytes, keyType, nil
}

// UnmarshalSigner reverses MarshalSigner.
func UnmarshalSigner(keyBytes []byte, keyType string) (crypto.Signer, error) {
	var privKey crypto.Signer
	var err error
	switch keyType {
	case "rsa":
		privKey, err = x509.ParsePKCS1PrivateKey(keyBytes)
	case "ecdsa":
		privKey, err = x509.ParseECPrivateKey(keyBytes)
	default:
		err = fmt.Errorf("unknown key type %q", keyType)
	}
	if err != nil {
		return nil, err
	}
	return privKey, nil
}

// SignerToPEM serializes a private key to PEM.
func SignerToPEM(signer crypto.Signer) (string, error) {
	var keyBytes []byte
	var keyHeader string
	var err error
	switch k := signer.(type) {
	case *rsa.PrivateKey:
		keyBytes = x509.MarshalPKCS1PrivateKey(k)
		keyHeader = "RSA PRIVATE KEY"
	case *ecdsa.PrivateKey:
		keyBytes, err = x509.MarshalECPrivateKey(k)
		keyHeader = "EC PRIVATE KEY"
	default:
		err = fmt.Errorf("unknown key type: %T", k)
	}
	if err != nil {
		return "", err
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  keyHeader,
		Bytes: keyBytes,
	})
	return string(pemBytes), nil
}

// SignerFromPEM parses a PEM serialized private key produced by
// SignerToPEM or any compatible tool.
func SignerFromPEM(pemBytes []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in key data")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("PKCS8 key of type %T is not a signer", key)
		}
		return signer, nil
	}
	return nil, fmt.Errorf("unknown PEM block type %q", block.Type)
}

// NewSigner generates a fresh private key of the given type: "rsa"
// (2048 bits) or "ecdsa" (P-256).
func NewSigner(keyType string) (crypto.Signer, error) {
	var randKey crypto.Signer
	var err error
	switch keyType {
	case "rsa":
		randKey, err = rsa.GenerateKey(rand.Reader, DefaultRSABits)
	case "ecdsa":
		randKey, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	default:
		err = fmt.Errorf("unknown key type: %q", keyType)
	}
	if err != nil {
		return nil, err
	}
	return randKey, nil
}
