// Package pki generates and serializes the certificate-side artifacts of
// an issuance flow: subject private keys, certificate signing requests
// and issued certificates. It is deliberately independent of the account
// key handling in the keys package; a subject key should never double as
// an account key.
package pki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/ebekker/acmekit/acme/keys"
)

// Tool creates and converts private keys, CSRs and certificates. The
// single implementation is backed by the platform x509 stack; Export and
// Import round-trip through PEM so artifacts interoperate with openssl
// and friends.
type Tool interface {
	// GeneratePrivateKey creates a new subject private key of the given
	// type, "rsa" (2048 bits) or "ecdsa" (P-256).
	GeneratePrivateKey(keyType string) (crypto.Signer, error)
	// ExportPrivateKey serializes a private key to PEM.
	ExportPrivateKey(key crypto.Signer) ([]byte, error)
	// ImportPrivateKey parses a PEM serialized private key.
	ImportPrivateKey(pemBytes []byte) (crypto.Signer, error)
	// GenerateCSR builds and signs a DER CSR for the given DNS names.
	// The first name becomes the subject common name and every name is
	// carried as a DNS SAN.
	GenerateCSR(key crypto.Signer, dnsNames []string) ([]byte, error)
	// ExportCSR serializes a DER CSR to PEM.
	ExportCSR(csrDER []byte) ([]byte, error)
	// ImportCSR parses a PEM serialized CSR back to DER, verifying its
	// signature.
	ImportCSR(pemBytes []byte) ([]byte, error)
	// ImportCertificate parses a DER certificate.
	ImportCertificate(certDER []byte) (*x509.Certificate, error)
	// ExportCertificate serializes a DER certificate to PEM.
	ExportCertificate(certDER []byte) ([]byte, error)
	// ExportArchive bundles a private key, end-entity certificate and
	// optional issuer chain into one PEM archive, key first.
	ExportArchive(key crypto.Signer, certDER []byte, chainDER [][]byte) ([]byte, error)
}

type tool struct{}

// NewTool returns the x509-backed Tool.
func NewTool() Tool {
	return tool{}
}

func (tool) GeneratePrivateKey(keyType string) (crypto.Signer, error) {
	switch keyType {
	case "rsa":
		return rsa.GenerateKey(rand.Reader, keys.DefaultRSABits)
	case "ecdsa":
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}
	return nil, fmt.Errorf("unknown key type: %q", keyType)
}

func (tool) ExportPrivateKey(key crypto.Signer) ([]byte, error) {
	pemStr, err := keys.SignerToPEM(key)
	if err != nil {
		return nil, err
	}
	return []byte(pemStr), nil
}

func (tool) ImportPrivateKey(pemBytes []byte) (crypto.Signer, error) {
	return keys.SignerFromPEM(pemBytes)
}

func (tool) GenerateCSR(key crypto.Signer, dnsNames []string) ([]byte, error) {
	var names []string
	for _, name := range dnsNames {
		name = strings.TrimSpace(name)
		if name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no DNS names for CSR")
	}
	template := &x509.CertificateRequest{
		Subject:  pkix.Name{CommonName: names[0]},
		DNSNames: names,
	}
	return x509.CreateCertificateRequest(rand.Reader, template, key)
}

func (tool) ExportCSR(csrDER []byte) ([]byte, error) {
	if _, err := x509.ParseCertificateRequest(csrDER); err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE REQUEST",
		Bytes: csrDER,
	}), nil
}

func (tool) ImportCSR(pemBytes []byte) ([]byte, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != "CERTIFICATE REQUEST" {
		return nil, fmt.Errorf("no CERTIFICATE REQUEST PEM block found")
	}
	csr, err := x509.ParseCertificateRequest(block.Bytes)
	if err != nil {
		return nil, err
	}
	if err := csr.CheckSignature(); err != nil {
		return nil, fmt.Errorf("CSR signature invalid: %w", err)
	}
	return block.Bytes, nil
}

func (tool) ImportCertificate(certDER []byte) (*x509.Certificate, error) {
	return x509.ParseCertificate(certDER)
}

func (tool) ExportCertificate(certDER []byte) ([]byte, error) {
	if _, err := x509.ParseCertificate(certDER); err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: certDER,
	}), nil
}

func (t tool) ExportArchive(key crypto.Signer, certDER []byte, chainDER [][]byte) ([]byte, error) {
	var archive []byte

	if key != nil {
		keyPEM, err := t.ExportPrivateKey(key)
		if err != nil {
			return nil, err
		}
		archive = append(archive, keyPEM...)
	}

	certPEM, err := t.ExportCertificate(certDER)
	if err != nil {
		return nil, err
	}
	archive = append(archive, certPEM...)

	for _, der := range chainDER {
		chainPEM, err := t.ExportCertificate(der)
		if err != nil {
			return nil, err
		}
		archive = append(archive, chainPEM...)
	}
	return archive, nil
}
