package client

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ebekker/acmekit/acme"
	"github.com/ebekker/acmekit/acme/resources"
)

// Default minimum delay between certificate polls when the server sends
// no Retry-After header.
const defaultCertRetryAfter = 1 * time.Second

// RequestCertificate submits a DER-encoded CSR to the new-cert resource.
// When the server issues synchronously the returned request already
// carries the certificate; otherwise it carries the certificate URL from
// the Location header and a Retry-After hint, and the caller polls with
// RefreshCertificateRequest or WaitCertificate until issuance completes.
func (c *Client) RequestCertificate(ctx context.Context, csrDER []byte) (*resources.CertificateRequest, error) {
	newCertURL, err := c.URLFor(acme.NEW_CERT_RESOURCE)
	if err != nil {
		return nil, err
	}

	payload := &struct {
		Resource string            `json:"resource"`
		CSR      resources.DERData `json:"csr"`
	}{
		Resource: acme.NEW_CERT_RESOURCE,
		CSR:      resources.DERData(csrDER),
	}

	resp, err := c.postSigned(ctx, newCertURL, payload)
	if err != nil {
		return nil, err
	}

	certReq := &resources.CertificateRequest{
		CSR:        resources.DERData(csrDER),
		StatusCode: resp.Response.StatusCode,
		URL:        resp.Response.Header.Get(acme.LOCATION_HEADER),
		RetryAfter: retryAfter(resp.Response.Header, defaultCertRetryAfter),
	}

	if resp.Response.StatusCode == http.StatusCreated && len(resp.RespBody) > 0 {
		certReq.Certificate = resp.RespBody
		certReq.IssuerURL = firstLink(resp.Response, acme.UpRelation)
		log.Printf("Certificate issued immediately at %q\n", certReq.URL)
	} else {
		log.Printf("Certificate pending at %q, retry in %s\n",
			certReq.URL, certReq.RetryAfter)
	}
	return certReq, nil
}

// RefreshCertificateRequest polls the certificate URL once, waiting out
// the request's current Retry-After hint first. A 200 response completes
// the request; a 202 updates the Retry-After hint for the next poll.
func (c *Client) RefreshCertificateRequest(ctx context.Context, certReq *resources.CertificateRequest) error {
	if certReq == nil || certReq.URL == "" {
		return &acme.StateError{
			Op:     "RefreshCertificateRequest",
			Reason: "certificate request has no URL",
		}
	}
	if certReq.Issued() {
		return nil
	}

	if err := sleepCtx(ctx, certReq.RetryAfter); err != nil {
		return err
	}

	resp, err := c.getURL(ctx, certReq.URL)
	if err != nil {
		return err
	}
	certReq.StatusCode = resp.Response.StatusCode

	if resp.Response.StatusCode == http.StatusOK && len(resp.RespBody) > 0 {
		certReq.Certificate = resp.RespBody
		certReq.IssuerURL = firstLink(resp.Response, acme.UpRelation)
		certReq.RetryAfter = 0
		log.Printf("Certificate issued at %q\n", certReq.URL)
		return nil
	}

	// Still processing. Back off, honoring any fresh Retry-After hint.
	certReq.RetryAfter = retryAfter(resp.Response.Header,
		nextPollDelay(certReq.RetryAfter, 0))
	return nil
}

// WaitCertificate polls the certificate request until the certificate is
// issued, the context is cancelled or the attempt budget runs out.
func (c *Client) WaitCertificate(ctx context.Context, certReq *resources.CertificateRequest) error {
	for attempt := 0; attempt < maxPollAttempts; attempt++ {
		if certReq != nil && certReq.Issued() {
			return nil
		}
		if err := c.RefreshCertificateRequest(ctx, certReq); err != nil {
			return err
		}
	}
	return fmt.Errorf("certificate %q not issued after %d polls",
		certReq.URL, maxPollAttempts)
}

// FetchIssuerCertificate downloads the DER issuer certificate, preferring
// the Link rel="up" URL captured with an issued certificate and falling
// back to the directory's issuer-cert resource.
func (c *Client) FetchIssuerCertificate(ctx context.Context, certReq *resources.CertificateRequest) ([]byte, error) {
	issuerURL := ""
	if certReq != nil {
		issuerURL = certReq.IssuerURL
	}
	if issuerURL == "" {
		var err error
		issuerURL, err = c.URLFor(acme.ISSUER_CERT_RESOURCE)
		if err != nil {
			return nil, err
		}
	}

	resp, err := c.getURL(ctx, issuerURL)
	if err != nil {
		return nil, err
	}
	if len(resp.RespBody) == 0 {
		return nil, &acme.FormatError{
			Reason: fmt.Sprintf("empty issuer certificate from %q", issuerURL),
		}
	}
	return resp.RespBody, nil
}

// RevokeCertificate asks the server to revoke a previously issued
// certificate, identified by its full DER encoding. Revocation must be
// signed with a key the server accepts for the certificate; an account
// that controls neither the certificate key nor the covered identifiers
// gets an unauthorized problem back.
func (c *Client) RevokeCertificate(ctx context.Context, certDER []byte) error {
	revokeURL, err := c.URLFor(acme.REVOKE_CERT_RESOURCE)
	if err != nil {
		return err
	}

	payload := &struct {
		Resource    string            `json:"resource"`
		Certificate resources.DERData `json:"certificate"`
	}{
		Resource:    acme.REVOKE_CERT_RESOURCE,
		Certificate: resources.DERData(certDER),
	}

	if _, err := c.postSigned(ctx, revokeURL, payload); err != nil {
		return err
	}
	log.Printf("Certificate revoked\n")
	return nil
}
