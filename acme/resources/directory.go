package resources

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/ebekker/acmekit/acme"
)

// DirectoryPath is the well-known path of the directory document.
const DirectoryPath = "/directory"

// defaultPaths seed a Directory before the server's directory document has
// been fetched. Servers override these through the /directory resource.
var defaultPaths = map[string]string{
	acme.NEW_REG_RESOURCE:     "/acme/new-reg",
	acme.NEW_AUTHZ_RESOURCE:   "/acme/new-authz",
	acme.NEW_CERT_RESOURCE:    "/acme/new-cert",
	acme.REVOKE_CERT_RESOURCE: "/acme/revoke-cert",
	acme.ISSUER_CERT_RESOURCE: "/acme/issuer-cert",
}

// Directory holds the server's resource-name to URL map. Entries may be
// absolute or relative; URL resolves relative entries against the root URL
// the Directory was created with. A Directory is immutable between Merge
// calls and Merge fully replaces known entries, so one loaded directory
// stays stable for a client session.
type Directory struct {
	root    *url.URL
	entries map[string]string
}

// NewDirectory creates a Directory rooted at the given server URL, seeded
// with the well-known default paths.
func NewDirectory(root *url.URL) *Directory {
	entries := make(map[string]string, len(defaultPaths))
	for name, path := range defaultPaths {
		entries[name] = path
	}
	return &Directory{root: root, entries: entries}
}

// DirectoryURL returns the absolute URL of the directory document itself.
func (d *Directory) DirectoryURL() string {
	ref := &url.URL{Path: DirectoryPath}
	return d.root.ResolveReference(ref).String()
}

// Merge replaces the directory's entries with those from a server-provided
// directory document. Entries the server did not include keep their
// previous values.
func (d *Directory) Merge(entries map[string]string) {
	for name, value := range entries {
		if value == "" {
			continue
		}
		d.entries[name] = value
	}
}

// URL resolves the named resource to an absolute URL. Relative entries are
// resolved against the directory's root URL. Unknown resource names fail
// with an UnknownResourceError.
func (d *Directory) URL(resource string) (string, error) {
	entry, ok := d.entries[resource]
	if !ok {
		return "", &acme.UnknownResourceError{Resource: resource}
	}
	ref, err := url.Parse(entry)
	if err != nil {
		return "", fmt.Errorf("directory entry %q is not a valid URL: %w", resource, err)
	}
	return d.root.ResolveReference(ref).String(), nil
}

// Resources returns the known resource names in sorted order.
func (d *Directory) Resources() []string {
	names := make([]string, 0, len(d.entries))
	for name := range d.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
