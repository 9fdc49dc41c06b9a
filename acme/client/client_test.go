package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebekker/acmekit/acme"
	"github.com/ebekker/acmekit/acme/resources"
)

// fakeCA is a minimal ACME v1 server for exercising the client end to
// end: directory, registration, authorization, certificate issuance and
// revocation. Every response carries a fresh Replay-Nonce unless
// withholdNonces is set.
type fakeCA struct {
	mux     *http.ServeMux
	baseURL string

	nonceCounter int
	lastNonce    string
	// Nonce carried in the protected header of the last JWS received.
	lastJWSNonce string
	// Payload of the last JWS received, keyed by request path.
	lastPayload map[string][]byte

	withholdNonces bool
	regConflict    bool
	certPolls      int
	authzStatus    string
}

func newFakeCA() (*fakeCA, *httptest.Server) {
	ca := &fakeCA{
		mux:         http.NewServeMux(),
		lastPayload: map[string][]byte{},
		authzStatus: acme.StatusPending,
	}

	ca.mux.HandleFunc("/directory", ca.directory)
	ca.mux.HandleFunc("/acme/new-reg", ca.newReg)
	ca.mux.HandleFunc("/reg/1", ca.reg)
	ca.mux.HandleFunc("/acme/new-authz", ca.newAuthz)
	ca.mux.HandleFunc("/authz/1", ca.authz)
	ca.mux.HandleFunc("/chall/1", ca.challenge)
	ca.mux.HandleFunc("/acme/new-cert", ca.newCert)
	ca.mux.HandleFunc("/cert/1", ca.cert)
	ca.mux.HandleFunc("/acme/issuer-cert", ca.issuerCert)
	ca.mux.HandleFunc("/acme/revoke-cert", ca.revokeCert)

	hts := httptest.NewServer(ca.mux)
	ca.baseURL = hts.URL
	return ca, hts
}

func (ca *fakeCA) setNonce(w http.ResponseWriter) {
	if ca.withholdNonces {
		return
	}
	ca.nonceCounter++
	ca.lastNonce = fmt.Sprintf("nonce-%d", ca.nonceCounter)
	w.Header().Set(acme.REPLAY_NONCE_HEADER, ca.lastNonce)
}

func (ca *fakeCA) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", acme.JSONContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (ca *fakeCA) respondProblem(w http.ResponseWriter, prob *resources.Problem) {
	w.Header().Set("Content-Type", acme.ProblemContentType)
	w.WriteHeader(prob.Status)
	_ = json.NewEncoder(w).Encode(prob)
}

// decodeJWS verifies the flattened JWS body against its embedded JWK and
// records the protected nonce and payload for assertions.
func (ca *fakeCA) decodeJWS(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	jws, err := jose.ParseSigned(string(body), []jose.SignatureAlgorithm{jose.RS256, jose.ES256})
	if err != nil {
		return nil, err
	}
	hdr := jws.Signatures[0].Header
	if hdr.JSONWebKey == nil {
		return nil, fmt.Errorf("JWS has no embedded JWK")
	}
	if hdr.Nonce == "" {
		return nil, fmt.Errorf("JWS protected header has no nonce")
	}
	payload, err := jws.Verify(hdr.JSONWebKey)
	if err != nil {
		return nil, err
	}
	ca.lastJWSNonce = hdr.Nonce
	ca.lastPayload[r.URL.Path] = payload
	return payload, nil
}

func (ca *fakeCA) directory(w http.ResponseWriter, r *http.Request) {
	ca.setNonce(w)
	ca.respondJSON(w, http.StatusOK, map[string]string{
		acme.NEW_REG_RESOURCE:     ca.baseURL + "/acme/new-reg",
		acme.NEW_AUTHZ_RESOURCE:   ca.baseURL + "/acme/new-authz",
		acme.NEW_CERT_RESOURCE:    ca.baseURL + "/acme/new-cert",
		acme.REVOKE_CERT_RESOURCE: ca.baseURL + "/acme/revoke-cert",
		acme.ISSUER_CERT_RESOURCE: ca.baseURL + "/acme/issuer-cert",
	})
}

func (ca *fakeCA) newReg(w http.ResponseWriter, r *http.Request) {
	payload, err := ca.decodeJWS(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ca.setNonce(w)

	if ca.regConflict {
		w.Header().Set(acme.LOCATION_HEADER, ca.baseURL+"/reg/1")
		ca.respondProblem(w, &resources.Problem{
			Type:   acme.ErrMalformed,
			Detail: "Registration key is already in use",
			Status: http.StatusConflict,
		})
		return
	}

	var reg resources.Registration
	if err := json.Unmarshal(payload, &reg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set(acme.LOCATION_HEADER, ca.baseURL+"/reg/1")
	w.Header().Add(acme.LINK_HEADER, `</terms>;rel="terms-of-service"`)
	ca.respondJSON(w, http.StatusCreated, &resources.Registration{
		Resource: acme.REG_RESOURCE,
		Contact:  reg.Contact,
	})
}

func (ca *fakeCA) reg(w http.ResponseWriter, r *http.Request) {
	payload, err := ca.decodeJWS(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ca.setNonce(w)

	var reg resources.Registration
	if err := json.Unmarshal(payload, &reg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Add(acme.LINK_HEADER, `</terms>;rel="terms-of-service"`)
	ca.respondJSON(w, http.StatusAccepted, &resources.Registration{
		Resource:  acme.REG_RESOURCE,
		Contact:   []string{"mailto:admin@example.com"},
		Agreement: reg.Agreement,
	})
}

func (ca *fakeCA) newAuthz(w http.ResponseWriter, r *http.Request) {
	payload, err := ca.decodeJWS(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ca.setNonce(w)

	var authz resources.Authorization
	if err := json.Unmarshal(payload, &authz); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if authz.Identifier.Value == "blacklisted.example" {
		ca.respondProblem(w, &resources.Problem{
			Type:   acme.ErrUnauthorized,
			Detail: "Policy forbids issuing for name",
			Status: http.StatusForbidden,
		})
		return
	}

	w.Header().Set(acme.LOCATION_HEADER, ca.baseURL+"/authz/1")
	ca.respondJSON(w, http.StatusCreated, &resources.Authorization{
		Identifier: authz.Identifier,
		Status:     acme.StatusPending,
		Challenges: []resources.Challenge{
			{Type: "http", URI: ca.baseURL + "/chall/1", Token: "tok-http", Status: acme.StatusPending},
			{Type: "dns", URI: ca.baseURL + "/chall/2", Token: "tok-dns", Status: acme.StatusPending},
		},
		Combinations: [][]int{{0}, {1}},
	})
}

func (ca *fakeCA) authz(w http.ResponseWriter, r *http.Request) {
	ca.setNonce(w)
	ca.respondJSON(w, http.StatusOK, &resources.Authorization{
		Identifier: resources.Identifier{Type: "dns", Value: "example.com"},
		Status:     ca.authzStatus,
		Challenges: []resources.Challenge{
			{Type: "http", URI: ca.baseURL + "/chall/1", Status: ca.authzStatus},
		},
	})
}

func (ca *fakeCA) challenge(w http.ResponseWriter, r *http.Request) {
	if _, err := ca.decodeJWS(r); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ca.setNonce(w)
	ca.respondJSON(w, http.StatusAccepted, &resources.Challenge{
		Type:   "http",
		URI:    ca.baseURL + "/chall/1",
		Token:  "tok-http",
		Status: acme.StatusPending,
	})
}

func (ca *fakeCA) newCert(w http.ResponseWriter, r *http.Request) {
	if _, err := ca.decodeJWS(r); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ca.setNonce(w)
	w.Header().Set(acme.LOCATION_HEADER, ca.baseURL+"/cert/1")
	w.Header().Set(acme.RETRY_AFTER_HEADER, "0")
	w.WriteHeader(http.StatusAccepted)
}

func (ca *fakeCA) cert(w http.ResponseWriter, r *http.Request) {
	ca.setNonce(w)
	ca.certPolls++
	if ca.certPolls < 2 {
		w.Header().Set(acme.RETRY_AFTER_HEADER, "0")
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.Header().Add(acme.LINK_HEADER, `</acme/issuer-cert>;rel="up"`)
	w.Header().Set("Content-Type", acme.PKIXCertContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("fake-der-certificate"))
}

func (ca *fakeCA) issuerCert(w http.ResponseWriter, r *http.Request) {
	ca.setNonce(w)
	w.Header().Set("Content-Type", acme.PKIXCertContentType)
	_, _ = w.Write([]byte("fake-der-issuer"))
}

func (ca *fakeCA) revokeCert(w http.ResponseWriter, r *http.Request) {
	if _, err := ca.decodeJWS(r); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ca.setNonce(w)
	w.WriteHeader(http.StatusOK)
}

func newTestClient(t *testing.T, rootURL string) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{
		RootURL: rootURL,
		KeyType: "ecdsa",
	})
	require.NoError(t, err)
	return client
}

func TestInitCapturesNonce(t *testing.T) {
	ca, hts := newFakeCA()
	defer hts.Close()

	client := newTestClient(t, hts.URL)
	require.NoError(t, client.Init(context.Background()))

	assert.Equal(t, ca.lastNonce, client.nonce,
		"stored nonce must be the last Replay-Nonce seen")

	newRegURL, err := client.URLFor(acme.NEW_REG_RESOURCE)
	require.NoError(t, err)
	assert.Equal(t, hts.URL+"/acme/new-reg", newRegURL)
}

func TestNonceFailFast(t *testing.T) {
	ca, hts := newFakeCA()
	defer hts.Close()
	ca.withholdNonces = true

	client := newTestClient(t, hts.URL)
	require.NoError(t, client.Init(context.Background()))

	_, err := client.Register(context.Background(), nil)
	require.Error(t, err)
	var stateErr *acme.StateError
	require.True(t, errors.As(err, &stateErr),
		"error %v is not a StateError", err)
}

func TestAuthorizeIdentifier(t *testing.T) {
	ca, hts := newFakeCA()
	defer hts.Close()

	client := newTestClient(t, hts.URL)
	require.NoError(t, client.Init(context.Background()))
	primedNonce := client.nonce

	authz, err := client.AuthorizeIdentifier(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, primedNonce, ca.lastJWSNonce,
		"JWS protected header must carry the primed nonce")
	assert.JSONEq(t,
		`{"resource":"new-authz","identifier":{"type":"dns","value":"example.com"}}`,
		string(ca.lastPayload["/acme/new-authz"]))

	assert.Equal(t, hts.URL+"/authz/1", authz.URL)
	assert.Equal(t, acme.StatusPending, authz.Status)
	require.Len(t, authz.Challenges, 2)
	assert.Equal(t, [][]int{{0}, {1}}, authz.Combinations)

	assert.Equal(t, ca.lastNonce, client.nonce,
		"the response nonce must replace the consumed one")
}

func TestRegister(t *testing.T) {
	_, hts := newFakeCA()
	defer hts.Close()

	client := newTestClient(t, hts.URL)
	require.NoError(t, client.Init(context.Background()))

	reg, err := client.Register(context.Background(), []string{"mailto:admin@example.com"})
	require.NoError(t, err)
	assert.Equal(t, hts.URL+"/reg/1", reg.URL)
	assert.Equal(t, []string{"mailto:admin@example.com"}, reg.Contact)
	assert.Equal(t, hts.URL+"/terms", reg.TermsOfService)
	assert.Equal(t, reg, client.Registration)
}

func TestRegisterDefaultsConfiguredContact(t *testing.T) {
	ca, hts := newFakeCA()
	defer hts.Close()

	client, err := NewClient(ClientConfig{
		RootURL:      hts.URL,
		KeyType:      "ecdsa",
		ContactEmail: "owner@example.com",
	})
	require.NoError(t, err)
	require.NoError(t, client.Init(context.Background()))

	reg, err := client.Register(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"mailto:owner@example.com"}, reg.Contact,
		"the configured contact email must back an empty contact list")

	var sent map[string]any
	require.NoError(t, json.Unmarshal(ca.lastPayload["/acme/new-reg"], &sent))
	assert.Equal(t, []any{"mailto:owner@example.com"}, sent["contact"])

	// Explicit contacts win over the configured default.
	reg, err = client.Register(context.Background(), []string{"mailto:other@example.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"mailto:other@example.com"}, reg.Contact)
}

func TestRegisterDuplicateCollapses(t *testing.T) {
	ca, hts := newFakeCA()
	defer hts.Close()
	ca.regConflict = true

	client := newTestClient(t, hts.URL)
	require.NoError(t, client.Init(context.Background()))

	reg, err := client.Register(context.Background(), []string{"mailto:admin@example.com"})
	require.NoError(t, err, "duplicate registration must not surface the 409")
	assert.Equal(t, hts.URL+"/reg/1", reg.URL)

	// The follow-up fetch must have been a read-only refresh.
	assert.JSONEq(t, `{"resource":"reg"}`, string(ca.lastPayload["/reg/1"]))
}

func TestUpdateRegistrationEmptyIsReadOnly(t *testing.T) {
	ca, hts := newFakeCA()
	defer hts.Close()

	client := newTestClient(t, hts.URL)
	require.NoError(t, client.Init(context.Background()))
	_, err := client.Register(context.Background(), nil)
	require.NoError(t, err)

	reg, err := client.UpdateRegistration(context.Background(), nil, false, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"resource":"reg"}`, string(ca.lastPayload["/reg/1"]),
		"an empty update must carry only the resource member")
	assert.Equal(t, hts.URL+"/reg/1", reg.URL)
}

func TestUpdateRegistrationAgreeTos(t *testing.T) {
	ca, hts := newFakeCA()
	defer hts.Close()

	client := newTestClient(t, hts.URL)
	require.NoError(t, client.Init(context.Background()))
	_, err := client.Register(context.Background(), nil)
	require.NoError(t, err)

	reg, err := client.UpdateRegistration(context.Background(), nil, true, nil)
	require.NoError(t, err)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(ca.lastPayload["/reg/1"], &sent))
	assert.Equal(t, hts.URL+"/terms", sent["agreement"],
		"agreement must name the advertised terms URL")
	assert.True(t, reg.TermsAgreed())
}

func TestProblemTranslation(t *testing.T) {
	ca, hts := newFakeCA()
	defer hts.Close()

	client := newTestClient(t, hts.URL)
	require.NoError(t, client.Init(context.Background()))

	_, err := client.AuthorizeIdentifier(context.Background(), "blacklisted.example")
	require.Error(t, err)

	var prob *acme.ProblemError
	require.True(t, errors.As(err, &prob), "error %v is not a ProblemError", err)
	assert.Equal(t, acme.ErrUnauthorized, prob.Type)
	assert.Equal(t, "Policy forbids issuing for name", prob.Detail)
	assert.Equal(t, http.StatusForbidden, prob.StatusCode)
	assert.True(t, acme.IsProblemType(err, acme.ErrUnauthorized))
	assert.Equal(t, http.StatusForbidden, acme.ProblemStatus(err))

	assert.Equal(t, ca.lastNonce, client.nonce,
		"nonces must be captured from problem responses too")
}

func TestRefreshAuthorization(t *testing.T) {
	ca, hts := newFakeCA()
	defer hts.Close()

	client := newTestClient(t, hts.URL)
	require.NoError(t, client.Init(context.Background()))

	authz, err := client.AuthorizeIdentifier(context.Background(), "example.com")
	require.NoError(t, err)

	ca.authzStatus = acme.StatusValid
	_, err = client.RefreshAuthorization(context.Background(), authz)
	require.NoError(t, err)
	assert.Equal(t, acme.StatusValid, authz.Status)

	// The refresh only named the http challenge; the dns offer survives.
	require.Len(t, authz.Challenges, 2)
	assert.Equal(t, "tok-http", authz.Challenges[0].Token)

	// A later stale read must not regress the terminal status.
	ca.authzStatus = acme.StatusPending
	_, err = client.RefreshAuthorization(context.Background(), authz)
	require.Error(t, err)
	assert.Equal(t, acme.StatusValid, authz.Status)
}

func TestWaitAuthorizationRefreshesBeforeSleeping(t *testing.T) {
	ca, hts := newFakeCA()
	defer hts.Close()

	client := newTestClient(t, hts.URL)
	require.NoError(t, client.Init(context.Background()))

	authz, err := client.AuthorizeIdentifier(context.Background(), "example.com")
	require.NoError(t, err)
	require.Equal(t, acme.StatusPending, authz.Status)

	// The server settled the authorization already; the wait must
	// resolve it with one immediate refresh instead of sleeping first.
	ca.authzStatus = acme.StatusValid
	start := time.Now()
	authz, err = client.WaitAuthorization(context.Background(), authz)
	require.NoError(t, err)
	assert.Equal(t, acme.StatusValid, authz.Status)
	assert.True(t, time.Since(start) < initialPollDelay,
		"a settled authorization must not wait out a poll delay")
}

func TestSubmitChallengeAnswer(t *testing.T) {
	ca, hts := newFakeCA()
	defer hts.Close()

	client := newTestClient(t, hts.URL)
	require.NoError(t, client.Init(context.Background()))

	authz, err := client.AuthorizeIdentifier(context.Background(), "example.com")
	require.NoError(t, err)

	// Submitting without generating an answer first is a caller bug.
	_, err = client.SubmitChallengeAnswer(context.Background(), authz, nil, false)
	require.Error(t, err)
	var stateErr *acme.StateError
	require.True(t, errors.As(err, &stateErr), "error %v is not a StateError", err)

	ans, err := client.GenerateChallengeAnswer(authz, "http")
	require.NoError(t, err)
	assert.NotEmpty(t, ans.KeyAuthorization())

	_, err = client.SubmitChallengeAnswer(context.Background(), authz, ans, false)
	require.NoError(t, err)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(ca.lastPayload["/chall/1"], &sent))
	assert.Equal(t, "challenge", sent["resource"])
	assert.Equal(t, ans.KeyAuthorization(), sent["keyAuthorization"])
}

func TestCertificateFlow(t *testing.T) {
	_, hts := newFakeCA()
	defer hts.Close()

	client := newTestClient(t, hts.URL)
	require.NoError(t, client.Init(context.Background()))

	csrDER := []byte{0x30, 0x81, 0x01, 0x02}
	certReq, err := client.RequestCertificate(context.Background(), csrDER)
	require.NoError(t, err)
	assert.Equal(t, hts.URL+"/cert/1", certReq.URL)
	assert.False(t, certReq.Issued())

	require.NoError(t, client.WaitCertificate(context.Background(), certReq))
	assert.True(t, certReq.Issued())
	assert.Equal(t, []byte("fake-der-certificate"), certReq.Certificate)
	assert.Equal(t, hts.URL+"/acme/issuer-cert", certReq.IssuerURL)

	issuer, err := client.FetchIssuerCertificate(context.Background(), certReq)
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-der-issuer"), issuer)

	require.NoError(t, client.RevokeCertificate(context.Background(), certReq.Certificate))
}

func TestNonceConsumedOnRead(t *testing.T) {
	client := &Client{nonce: "only-once"}

	got, err := client.Nonce()
	require.NoError(t, err)
	assert.Equal(t, "only-once", got)

	_, err = client.Nonce()
	require.Error(t, err, "a nonce must never be handed out twice")
	var stateErr *acme.StateError
	assert.True(t, errors.As(err, &stateErr), "error %v is not a StateError", err)
}
