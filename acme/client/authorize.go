package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ebekker/acmekit/acme"
	"github.com/ebekker/acmekit/acme/resources"
)

// Polling defaults: without a Retry-After cue the delay starts at one
// second and doubles up to the cap. Polling gives up after maxPollAttempts
// rounds so an unresponsive server cannot spin a caller forever even
// without a context deadline.
const (
	initialPollDelay = 1 * time.Second
	maxPollDelay     = 30 * time.Second
	maxPollAttempts  = 20
)

// AuthorizeIdentifier asks the server for a new authorization for a DNS
// identifier. The returned authorization carries the server's challenge
// offers and combinations and its self URL for refreshing. Server policy
// rejections (for example a blacklisted domain) surface as a ProblemError
// with the CA's type URN and detail preserved verbatim.
func (c *Client) AuthorizeIdentifier(ctx context.Context, name string) (*resources.Authorization, error) {
	newAuthzURL, err := c.URLFor(acme.NEW_AUTHZ_RESOURCE)
	if err != nil {
		return nil, err
	}

	payload := &resources.Authorization{
		Resource: acme.NEW_AUTHZ_RESOURCE,
		Identifier: resources.Identifier{
			Type:  acme.DNSIdentifier,
			Value: name,
		},
	}

	resp, err := c.postSigned(ctx, newAuthzURL, payload)
	if err != nil {
		return nil, err
	}

	authz, err := decodeAuthorization(resp.RespBody)
	if err != nil {
		return nil, err
	}
	authz.URL = resp.Response.Header.Get(acme.LOCATION_HEADER)
	log.Printf("Created authorization %q for %q\n", authz.URL, name)
	return authz, nil
}

// RefreshAuthorization fetches the authorization's self URL and merges
// the server's view into authz in place. Fields the refresh payload
// omits are preserved, and a terminal status never regresses. The same
// authz pointer is returned for convenience.
func (c *Client) RefreshAuthorization(ctx context.Context, authz *resources.Authorization) (*resources.Authorization, error) {
	_, err := c.refreshAuthorization(ctx, authz)
	if err != nil {
		return nil, err
	}
	return authz, nil
}

// refreshAuthorization performs one refresh round trip and reports the
// server's Retry-After hint for the next poll, if any.
func (c *Client) refreshAuthorization(ctx context.Context, authz *resources.Authorization) (time.Duration, error) {
	if authz == nil || authz.URL == "" {
		return 0, &acme.StateError{
			Op:     "RefreshAuthorization",
			Reason: "authorization has no URL",
		}
	}

	resp, err := c.getURL(ctx, authz.URL)
	if err != nil {
		return 0, err
	}

	updated, err := decodeAuthorization(resp.RespBody)
	if err != nil {
		return 0, err
	}
	if err := authz.Update(updated); err != nil {
		return 0, err
	}
	return retryAfter(resp.Response.Header, 0), nil
}

// WaitAuthorization polls the authorization until its status is terminal
// or the context is cancelled. The first refresh happens without any
// delay, so an authorization the server already settled resolves in one
// round trip; later polls honor the server's Retry-After hints and
// otherwise double the delay from one second up to a cap.
func (c *Client) WaitAuthorization(ctx context.Context, authz *resources.Authorization) (*resources.Authorization, error) {
	var delay time.Duration
	for attempt := 0; attempt < maxPollAttempts; attempt++ {
		if authz != nil && acme.TerminalStatus(authz.Status) {
			return authz, nil
		}
		if err := sleepCtx(ctx, delay); err != nil {
			return nil, err
		}
		hint, err := c.refreshAuthorization(ctx, authz)
		if err != nil {
			return nil, err
		}
		if delay == 0 {
			delay = initialPollDelay
			if hint > delay {
				delay = hint
			}
		} else {
			delay = nextPollDelay(delay, hint)
		}
	}
	return nil, fmt.Errorf("authorization %q still %q after %d polls",
		authz.URL, authz.Status, maxPollAttempts)
}

// nextPollDelay doubles the previous delay up to the cap, with a server
// supplied Retry-After hint taking precedence as a minimum.
func nextPollDelay(prev, hint time.Duration) time.Duration {
	next := prev * 2
	if next > maxPollDelay {
		next = maxPollDelay
	}
	if hint > next {
		next = hint
	}
	return next
}

func decodeAuthorization(body []byte) (*resources.Authorization, error) {
	authz := &resources.Authorization{}
	if err := json.Unmarshal(body, authz); err != nil {
		return nil, &acme.FormatError{
			Payload: string(body),
			Reason:  "malformed authorization resource",
			Err:     err,
		}
	}
	return authz, nil
}
