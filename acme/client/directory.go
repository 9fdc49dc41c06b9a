package client

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/ebekker/acmekit/acme"
	"github.com/ebekker/acmekit/acme/resources"
)

// Directory returns the client's view of the server directory. Before
// Init it holds the well-known default paths.
func (c *Client) Directory() *resources.Directory {
	return c.directory
}

// URLFor resolves the named directory resource to an absolute URL.
func (c *Client) URLFor(resource string) (string, error) {
	return c.directory.URL(resource)
}

// UpdateDirectory re-fetches the server's directory document and replaces
// the cached resource map. The exchange also captures a fresh replay
// nonce, which is why a directory fetch doubles as the nonce priming
// request.
func (c *Client) UpdateDirectory(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateDirectoryLocked(ctx)
}

func (c *Client) updateDirectoryLocked(ctx context.Context) error {
	dirURL := c.directory.DirectoryURL()
	resp, err := c.doGet(ctx, dirURL)
	if err != nil {
		return err
	}
	if resp.Response.StatusCode != http.StatusOK {
		return responseError(http.MethodGet, dirURL, resp)
	}

	var entries map[string]string
	if err := json.Unmarshal(resp.RespBody, &entries); err != nil {
		return &acme.FormatError{
			Payload: string(resp.RespBody),
			Reason:  "malformed directory document",
			Err:     err,
		}
	}

	c.directory.Merge(entries)
	log.Printf("Updated directory from %q\n", dirURL)
	return nil
}
