package resources

import (
	"fmt"

	"github.com/ebekker/acmekit/acme"
)

// Identifier names a subject the account wants to be authorized for. Only
// "dns" identifiers are in common use.
type Identifier struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Authorization models one identifier's authorization lifecycle with the
// server: the identifier, the overall status, the offered challenges and
// the optional combinations naming which challenge subsets are jointly
// sufficient.
//
// The URL field is the authorization's self URL from the Location header
// of the new-authz response; status refreshes are GETs against it. Status
// is only ever mutated from server responses, never locally, and is
// monotone: once valid, invalid or revoked it cannot return to pending.
type Authorization struct {
	Resource   string     `json:"resource,omitempty"`
	Identifier Identifier `json:"identifier"`
	Status     string     `json:"status,omitempty"`
	// RFC 3339 expiry of the authorization, when provided.
	Expires    string      `json:"expires,omitempty"`
	Challenges []Challenge `json:"challenges,omitempty"`
	// Index sets into Challenges naming sufficient subsets.
	Combinations [][]int `json:"combinations,omitempty"`

	// Server-assigned self URL, from the Location header.
	URL string `json:"-"`
}

// String returns the authorization's self URL.
func (a Authorization) String() string {
	return a.URL
}

// ChallengeByType returns a pointer to the authorization's challenge of the
// given type, or an error if the server offered no such challenge.
func (a *Authorization) ChallengeByType(challType string) (*Challenge, error) {
	for i := range a.Challenges {
		if a.Challenges[i].Type == challType {
			return &a.Challenges[i], nil
		}
	}
	return nil, fmt.Errorf("authorization for %q offers no %q challenge",
		a.Identifier.Value, challType)
}

// Update merges a freshly fetched copy of the authorization into a. The
// overall status only moves forward: an update that would take a terminal
// status back to pending is rejected, because the server never does that
// and observing it indicates a protocol integrity problem. Challenge
// entries are matched by URI so fields absent from the refresh payload are
// preserved.
func (a *Authorization) Update(from *Authorization) error {
	if acme.TerminalStatus(a.Status) && from.Status != a.Status && !acme.TerminalStatus(from.Status) {
		return &acme.FormatError{
			Reason: fmt.Sprintf("authorization status regressed from %q to %q",
				a.Status, from.Status),
		}
	}
	if from.Status != "" {
		a.Status = from.Status
	}
	if from.Expires != "" {
		a.Expires = from.Expires
	}
	if from.Combinations != nil {
		a.Combinations = from.Combinations
	}
	for i := range from.Challenges {
		updated := &from.Challenges[i]
		merged := false
		for j := range a.Challenges {
			if a.Challenges[j].URI == updated.URI {
				a.Challenges[j].update(updated)
				merged = true
				break
			}
		}
		if !merged {
			a.Challenges = append(a.Challenges, *updated)
		}
	}
	return nil
}
