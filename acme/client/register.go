package client

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ebekker/acmekit/acme"
	"github.com/ebekker/acmekit/acme/resources"
)

// TermsOfServiceRelation is the Link rel naming the server's current
// terms-of-service document on registration responses.
const TermsOfServiceRelation = "terms-of-service"

// Register creates a registration for the client's account key with the
// given contact URIs ("mailto:...", "tel:..."). When no contacts are
// given the session's configured contact email, if any, is used. On
// success the server assigns a stable registration URL in the Location
// header.
//
// Registering a key that already has a registration is not an error: the
// server answers 409 with the existing registration's Location and the
// client fetches and returns that registration instead of propagating
// the conflict.
func (c *Client) Register(ctx context.Context, contacts []string) (*resources.Registration, error) {
	newRegURL, err := c.URLFor(acme.NEW_REG_RESOURCE)
	if err != nil {
		return nil, err
	}

	if len(contacts) == 0 && c.contactEmail != "" {
		contacts = []string{"mailto:" + c.contactEmail}
	}

	payload := &resources.Registration{
		Resource: acme.NEW_REG_RESOURCE,
		Contact:  contacts,
	}

	resp, err := c.postSigned(ctx, newRegURL, payload)
	if err != nil {
		var prob *acme.ProblemError
		if errors.As(err, &prob) && prob.StatusCode == http.StatusConflict && resp != nil {
			existingURL := resp.Response.Header.Get(acme.LOCATION_HEADER)
			if existingURL != "" {
				log.Printf("Account key already registered, fetching %q\n", existingURL)
				return c.UpdateRegistration(ctx, &resources.Registration{URL: existingURL}, false, nil)
			}
		}
		return nil, err
	}

	reg, err := decodeRegistration(resp.RespBody)
	if err != nil {
		return nil, err
	}
	reg.URL = resp.Response.Header.Get(acme.LOCATION_HEADER)
	reg.TermsOfService = firstLink(resp.Response, TermsOfServiceRelation)

	c.Registration = reg
	log.Printf("Registered account at %q\n", reg.URL)
	return reg, nil
}

// UpdateRegistration POSTs an update to an existing registration. With
// agreeToTos false and nil contacts the update is empty, which the
// server treats as a read-only refresh with no side effects; that is the
// way to fetch the current state of a registration. agreeToTos records
// agreement with the terms of service most recently advertised by the
// server. A nil reg updates the client's own registration.
func (c *Client) UpdateRegistration(ctx context.Context, reg *resources.Registration, agreeToTos bool, contacts []string) (*resources.Registration, error) {
	if reg == nil {
		reg = c.Registration
	}
	if reg == nil || reg.URL == "" {
		return nil, &acme.StateError{
			Op:     "UpdateRegistration",
			Reason: "no registration URL; register first",
		}
	}

	payload := &resources.Registration{
		Resource: acme.REG_RESOURCE,
		Contact:  contacts,
	}
	if agreeToTos {
		agreement := reg.TermsOfService
		if agreement == "" {
			// The current terms URL is not known yet; an empty refresh
			// learns it from the response's Link header.
			refreshed, err := c.UpdateRegistration(ctx, reg, false, nil)
			if err != nil {
				return nil, err
			}
			agreement = refreshed.TermsOfService
		}
		payload.Agreement = agreement
	}

	resp, err := c.postSigned(ctx, reg.URL, payload)
	if err != nil {
		return nil, err
	}

	updated, err := decodeRegistration(resp.RespBody)
	if err != nil {
		return nil, err
	}
	updated.URL = reg.URL
	updated.TermsOfService = firstLink(resp.Response, TermsOfServiceRelation)
	if updated.TermsOfService == "" {
		updated.TermsOfService = reg.TermsOfService
	}

	if c.Registration == nil || c.Registration.URL == updated.URL {
		c.Registration = updated
	}
	return updated, nil
}

func decodeRegistration(body []byte) (*resources.Registration, error) {
	reg := &resources.Registration{}
	if err := json.Unmarshal(body, reg); err != nil {
		return nil, &acme.FormatError{
			Payload: string(body),
			Reason:  "malformed registration resource",
			Err:     err,
		}
	}
	return reg, nil
}
