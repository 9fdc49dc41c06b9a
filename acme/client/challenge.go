package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ebekker/acmekit/acme"
	"github.com/ebekker/acmekit/acme/challenge"
	"github.com/ebekker/acmekit/acme/resources"
)

// GenerateChallengeAnswer computes the typed answer for the
// authorization's challenge of the given type using the account key. No
// network traffic is performed; the caller publishes the answer's proof
// material through a challenge handler before submitting it.
func (c *Client) GenerateChallengeAnswer(authz *resources.Authorization, challType string) (challenge.Answer, error) {
	if authz == nil {
		return nil, &acme.StateError{
			Op:     "GenerateChallengeAnswer",
			Reason: "nil authorization",
		}
	}
	part, err := authz.ChallengeByType(challType)
	if err != nil {
		return nil, err
	}
	return challenge.Prepare(part, c.Signer, authz.Identifier.Value)
}

// SubmitChallengeAnswer POSTs a generated answer to the challenge's own
// URI (not the authorization URL) and merges the server's updated view of
// the challenge into authz. Submitting before generating an answer, or
// re-submitting a challenge the server has already decided, is a contract
// violation and fails with a StateError. With waitForStatus set the call
// polls the authorization until its status is terminal.
func (c *Client) SubmitChallengeAnswer(ctx context.Context, authz *resources.Authorization, ans challenge.Answer, waitForStatus bool) (*resources.Authorization, error) {
	if ans == nil || ans.KeyAuthorization() == "" {
		return nil, &acme.StateError{
			Op:     "SubmitChallengeAnswer",
			Reason: "no challenge answer has been generated",
		}
	}
	part := ans.Part()
	if part.URI == "" {
		return nil, &acme.StateError{
			Op:     "SubmitChallengeAnswer",
			Reason: "challenge has no submission URI",
		}
	}
	if authz != nil {
		if current, err := authz.ChallengeByType(part.Type); err == nil && acme.TerminalStatus(current.Status) {
			return nil, &acme.StateError{
				Op:     "SubmitChallengeAnswer",
				Reason: fmt.Sprintf("challenge %q is already %q", part.URI, current.Status),
			}
		}
	}

	resp, err := c.postSigned(ctx, part.URI, ans.Payload())
	if err != nil {
		return nil, err
	}

	var updated resources.Challenge
	if err := json.Unmarshal(resp.RespBody, &updated); err != nil {
		return nil, &acme.FormatError{
			Payload: string(resp.RespBody),
			Reason:  "malformed challenge resource",
			Err:     err,
		}
	}
	if updated.URI == "" {
		updated.URI = part.URI
	}

	if authz != nil {
		if err := authz.Update(&resources.Authorization{Challenges: []resources.Challenge{updated}}); err != nil {
			return nil, err
		}
		if waitForStatus {
			return c.WaitAuthorization(ctx, authz)
		}
	}
	return authz, nil
}
