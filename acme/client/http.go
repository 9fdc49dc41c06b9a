package client

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ebekker/acmekit/acme"
	"github.com/ebekker/acmekit/acme/resources"
	acmenet "github.com/ebekker/acmekit/net"
)

// postSigned signs the payload and POSTs it to the given URL, capturing
// the response's replay nonce and translating problem documents into
// typed errors. The whole exchange holds the session mutex so concurrent
// callers queue for the nonce instead of racing for it. On a non-2xx
// response both the NetResponse and the error are returned, because some
// flows (duplicate registration) need response headers from the failure.
func (c *Client) postSigned(ctx context.Context, url string, payload any) (*acmenet.NetResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureNonce(ctx); err != nil {
		return nil, err
	}

	signResult, err := c.signPayload(payload)
	if err != nil {
		return nil, err
	}

	resp, err := c.net.PostURL(ctx, url, signResult.SerializedJWS)
	if err != nil {
		return nil, &acme.TransportError{
			Method: http.MethodPost,
			URL:    url,
			Err:    err,
		}
	}
	c.logExchange(resp)
	c.captureNonce(resp.Response)

	if resp.Response.StatusCode >= 400 {
		return resp, responseError(http.MethodPost, url, resp)
	}
	return resp, nil
}

// getURL performs an unsigned GET against the given URL with the same
// nonce capture and problem translation as signed exchanges. Polling
// calls on independent resources serialize through here too.
func (c *Client) getURL(ctx context.Context, url string) (*acmenet.NetResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.doGet(ctx, url)
	if err != nil {
		return nil, err
	}
	if resp.Response.StatusCode >= 400 {
		return resp, responseError(http.MethodGet, url, resp)
	}
	return resp, nil
}

// doGet is the lock-free GET core shared with the directory fetch.
func (c *Client) doGet(ctx context.Context, url string) (*acmenet.NetResponse, error) {
	resp, err := c.net.GetURL(ctx, url)
	if err != nil {
		return nil, &acme.TransportError{
			Method: http.MethodGet,
			URL:    url,
			Err:    err,
		}
	}
	c.logExchange(resp)
	c.captureNonce(resp.Response)
	return resp, nil
}

func (c *Client) logExchange(resp *acmenet.NetResponse) {
	if c.Output.PrintRequests {
		log.Printf("Request:\n%s\n", resp.ReqDump)
	}
	if c.Output.PrintResponses {
		log.Printf("Response:\n%s\n", resp.RespDump)
	}
}

// responseError translates a non-2xx response into the error taxonomy:
// a problem+json body becomes a ProblemError with the CA's type URN and
// detail preserved verbatim, anything else becomes a TransportError
// carrying the status and raw body.
func responseError(method, url string, resp *acmenet.NetResponse) error {
	contentType := resp.Response.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, acme.ProblemContentType) {
		var prob resources.Problem
		if err := json.Unmarshal(resp.RespBody, &prob); err != nil {
			return &acme.FormatError{
				Payload: string(resp.RespBody),
				Reason:  "malformed problem document",
				Err:     err,
			}
		}
		return &acme.ProblemError{
			Type:       prob.Type,
			Detail:     prob.Detail,
			StatusCode: resp.Response.StatusCode,
			Method:     method,
			URL:        url,
		}
	}
	return &acme.TransportError{
		Method:     method,
		URL:        url,
		StatusCode: resp.Response.StatusCode,
		Body:       resp.RespBody,
	}
}

// retryAfter parses a Retry-After header as either delay seconds or an
// HTTP-date, returning def when the header is absent or unparseable.
func retryAfter(hdr http.Header, def time.Duration) time.Duration {
	value := hdr.Get(acme.RETRY_AFTER_HEADER)
	if value == "" {
		return def
	}
	if n, err := strconv.Atoi(value); err == nil {
		if n < 0 {
			return def
		}
		return time.Duration(n) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
		return 0
	}
	return def
}

var linkRE = regexp.MustCompile(`^\s*<([^>]+)>(?:\s*;\s*[^=]+=(?:[^;"]+|"[^"]*"))*\s*;\s*rel="([^"]+)"`)

// links returns the URLs of the response's Link headers with the given
// rel value, resolved against the request URL.
func links(resp *http.Response, rel string) []string {
	var ret []string
	for _, raw := range resp.Header[acme.LINK_HEADER] {
		match := linkRE.FindStringSubmatch(raw)
		if match == nil || match[2] != rel {
			continue
		}
		target := match[1]
		if resp.Request != nil && resp.Request.URL != nil {
			if ref, err := resp.Request.URL.Parse(target); err == nil {
				target = ref.String()
			}
		}
		ret = append(ret, target)
	}
	return ret
}

// firstLink returns the first Link header with the given rel, or "".
func firstLink(resp *http.Response, rel string) string {
	if ls := links(resp, rel); len(ls) > 0 {
		return ls[0]
	}
	return ""
}

// sleepCtx waits for the given duration or until the context is done,
// whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
