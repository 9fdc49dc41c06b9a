package client

import (
	"context"
	"log"
	"net/http"

	"github.com/ebekker/acmekit/acme"
)

// Nonce satisfies the JWS NonceSource interface using the nonce captured
// from the previous response. Nonces are single use, so the stored value
// is consumed: a second signing attempt without an intervening exchange
// fails fast instead of silently replaying a stale nonce.
func (c *Client) Nonce() (string, error) {
	if c.nonce == "" {
		return "", &acme.StateError{
			Op:     "nonce",
			Reason: "no replay nonce available; no response has been seen yet",
		}
	}
	n := c.nonce
	c.nonce = ""
	if c.Output.PrintNonceUpdates {
		log.Printf("Consumed nonce %q\n", n)
	}
	return n, nil
}

// captureNonce overwrites the stored nonce from a response's Replay-Nonce
// header. Every exchange calls this, success or failure, as long as the
// header is present.
func (c *Client) captureNonce(resp *http.Response) {
	nonce := resp.Header.Get(acme.REPLAY_NONCE_HEADER)
	if nonce == "" {
		return
	}
	c.nonce = nonce
	if c.Output.PrintNonceUpdates {
		log.Printf("Updated nonce to %q\n", nonce)
	}
}

// ensureNonce guarantees a nonce is available before signing. When none
// is stored it performs a no-op directory fetch solely to obtain one; a
// server that still supplies no Replay-Nonce makes signed requests
// impossible and the caller gets a StateError rather than a nonce-less
// POST. Callers must hold the session mutex.
func (c *Client) ensureNonce(ctx context.Context) error {
	if c.nonce != "" {
		return nil
	}
	if err := c.updateDirectoryLocked(ctx); err != nil {
		return err
	}
	if c.nonce == "" {
		return &acme.StateError{
			Op:     "nonce",
			Reason: "server's directory response carried no Replay-Nonce header",
		}
	}
	return nil
}
