package client

import (
	"encoding/json"
	"log"

	jose "github.com/go-jose/go-jose/v4"

	"github.com/ebekker/acmekit/acme"
	"github.com/ebekker/acmekit/acme/keys"
)

// parseAlgs restricts which JWS algorithms the client will reparse. Only
// the algorithms the client itself can sign with are accepted.
var parseAlgs = []jose.SignatureAlgorithm{jose.RS256, jose.ES256}

// SignResult holds the input and output from a signing operation.
type SignResult struct {
	// The payload bytes that were signed.
	InputData []byte
	// The JWS produced by signing the payload.
	JWS *jose.JSONWebSignature
	// The flattened JSON serialization of the JWS, ready to POST.
	SerializedJWS []byte
}

// signPayload marshals the payload to JSON and signs it as a flattened
// JWS. The account's public key is embedded as a JWK and the protected
// header carries the current nonce, supplied through the client's
// NonceSource implementation. Callers must hold the session mutex and
// have ensured a nonce is available.
func (c *Client) signPayload(payload any) (*SignResult, error) {
	if c.Signer == nil {
		return nil, &acme.StateError{
			Op:     "sign",
			Reason: "client has no account key",
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	if c.Output.PrintSignedData {
		log.Printf("Signing:\n%s\n", data)
	}

	signingKey := jose.SigningKey{
		Key:       c.Signer,
		Algorithm: keys.SigAlgForKey(c.Signer),
	}

	signer, err := jose.NewSigner(signingKey, &jose.SignerOptions{
		NonceSource: c,
		EmbedJWK:    true,
	})
	if err != nil {
		return nil, err
	}

	signed, err := signer.Sign(data)
	if err != nil {
		return nil, err
	}

	serialized := []byte(signed.FullSerialize())

	// Reparse the serialized body to get a fully populated JWS object.
	parsedJWS, err := jose.ParseSigned(string(serialized), parseAlgs)
	if err != nil {
		return nil, err
	}

	if c.Output.PrintJWS {
		log.Printf("JWS:\n%s\n", serialized)
	}

	return &SignResult{
		InputData:     data,
		JWS:           parsedJWS,
		SerializedJWS: serialized,
	}, nil
}
