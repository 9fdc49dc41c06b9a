package pki

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePrivateKey(t *testing.T) {
	tool := NewTool()

	rsaKey, err := tool.GeneratePrivateKey("rsa")
	require.NoError(t, err)
	_, ok := rsaKey.(*rsa.PrivateKey)
	assert.True(t, ok, "rsa key has wrong type %T", rsaKey)

	ecdsaKey, err := tool.GeneratePrivateKey("ecdsa")
	require.NoError(t, err)
	_, ok = ecdsaKey.(*ecdsa.PrivateKey)
	assert.True(t, ok, "ecdsa key has wrong type %T", ecdsaKey)

	_, err = tool.GeneratePrivateKey("dsa")
	assert.Error(t, err)
}

func TestPrivateKeyRoundTrip(t *testing.T) {
	tool := NewTool()
	key, err := tool.GeneratePrivateKey("ecdsa")
	require.NoError(t, err)

	pemBytes, err := tool.ExportPrivateKey(key)
	require.NoError(t, err)
	restored, err := tool.ImportPrivateKey(pemBytes)
	require.NoError(t, err)
	assert.True(t, key.(*ecdsa.PrivateKey).Equal(restored), "restored key differs")
}

func TestGenerateCSR(t *testing.T) {
	tool := NewTool()
	key, err := tool.GeneratePrivateKey("rsa")
	require.NoError(t, err)

	csrDER, err := tool.GenerateCSR(key, []string{"example.com", "www.example.com", " "})
	require.NoError(t, err)

	csr, err := x509.ParseCertificateRequest(csrDER)
	require.NoError(t, err)
	require.NoError(t, csr.CheckSignature())
	assert.Equal(t, "example.com", csr.Subject.CommonName)
	assert.Equal(t, []string{"example.com", "www.example.com"}, csr.DNSNames)

	_, err = tool.GenerateCSR(key, nil)
	assert.Error(t, err, "CSR without names must fail")
}

func TestCSRPEMRoundTrip(t *testing.T) {
	tool := NewTool()
	key, err := tool.GeneratePrivateKey("ecdsa")
	require.NoError(t, err)
	csrDER, err := tool.GenerateCSR(key, []string{"example.com"})
	require.NoError(t, err)

	pemBytes, err := tool.ExportCSR(csrDER)
	require.NoError(t, err)
	restored, err := tool.ImportCSR(pemBytes)
	require.NoError(t, err)
	assert.Equal(t, csrDER, restored)

	_, err = tool.ImportCSR([]byte("garbage"))
	assert.Error(t, err)
}

func TestExportArchive(t *testing.T) {
	tool := NewTool()
	key, err := tool.GeneratePrivateKey("ecdsa")
	require.NoError(t, err)

	certDER := selfSignedCert(t, key.(*ecdsa.PrivateKey))
	issuerDER := selfSignedCert(t, key.(*ecdsa.PrivateKey))

	archive, err := tool.ExportArchive(key, certDER, [][]byte{issuerDER})
	require.NoError(t, err)

	var blockTypes []string
	rest := archive
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		blockTypes = append(blockTypes, block.Type)
	}
	assert.Equal(t, []string{"EC PRIVATE KEY", "CERTIFICATE", "CERTIFICATE"}, blockTypes)
}

func selfSignedCert(t *testing.T, key *ecdsa.PrivateKey) []byte {
	t.Helper()
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "example.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	require.NoError(t, err)
	return der
}
