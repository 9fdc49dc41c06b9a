// Package client provides a low-level ACME v1 client.
package client

import (
	"context"
	"crypto"
	"fmt"
	"log"
	"net/mail"
	"net/url"
	"strings"
	"sync"

	"github.com/ebekker/acmekit/acme/keys"
	"github.com/ebekker/acmekit/acme/resources"
	acmenet "github.com/ebekker/acmekit/net"
)

// Client performs signed exchanges with one ACME server on behalf of one
// account key. A client session owns the three pieces of shared mutable
// state the protocol requires: the cached server directory, the current
// replay nonce and the account signer. Every nonce-consuming exchange is
// serialized through the session mutex because nonces are single use and
// each request must carry the nonce captured from the previous response.
// Objects returned to the caller are owned by the caller; the client only
// touches them again through explicit refresh calls.
type Client struct {
	// Parsed root URL of the ACME server; directory and default resource
	// paths resolve against it.
	RootURL *url.URL
	// The account private key used for all JWS signing.
	Signer crypto.Signer
	// The account's registration, once created or restored.
	Registration *resources.Registration
	// Options controlling the client's output.
	Output OutputOptions

	net       *acmenet.ACMENet
	directory *resources.Directory
	// Configured contact email, used when Register gets no contacts.
	contactEmail string

	// mu serializes every exchange that consumes or captures a nonce.
	mu    sync.Mutex
	nonce string
}

// OutputOptions holds runtime output settings for a client.
type OutputOptions struct {
	// Print all HTTP requests made to the ACME server.
	PrintRequests bool
	// Print all HTTP responses from the ACME server.
	PrintResponses bool
	// Print all the input to JWS produced.
	PrintSignedData bool
	// Print the JSON serialization of all JWS produced.
	PrintJWS bool
	// Print nonce values as they are captured and consumed.
	PrintNonceUpdates bool
}

// ClientConfig contains configuration options provided to NewClient.
//
// RootURL is the base URL of the ACME server and is mandatory. The
// directory document is fetched from its well-known path under this URL
// and may override the default resource paths.
//
// CACert optionally names a file of PEM CA certificates to trust for
// HTTPS requests in place of the system roots, which is useful when
// testing against a local CA.
//
// ContactEmail is used as the registration's mailto contact when the host
// registers an account. AccountPath optionally names a JSON file to
// restore a previously saved account (key and registration URL) from.
type ClientConfig struct {
	// Base URL for the ACME server, with an http or https prefix.
	RootURL string
	// Optional file path of PEM CA certificates for HTTPS trust roots.
	CACert string
	// Optional contact email address used at registration time.
	ContactEmail string
	// Optional file path of a previously saved account to restore.
	AccountPath string
	// Key type for a newly generated account key: "rsa" (default) or "ecdsa".
	KeyType string
	// Initial OutputOptions settings.
	InitialOutput OutputOptions
}

// normalize validates a ClientConfig.
func (conf *ClientConfig) normalize() error {
	conf.RootURL = strings.TrimSpace(conf.RootURL)
	conf.ContactEmail = strings.TrimSpace(conf.ContactEmail)
	conf.AccountPath = strings.TrimSpace(conf.AccountPath)

	if conf.RootURL == "" {
		return fmt.Errorf("RootURL must not be empty")
	}
	parsed, err := url.Parse(conf.RootURL)
	if err != nil {
		return fmt.Errorf("RootURL invalid: %s", err.Error())
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("RootURL must have an http:// or https:// prefix")
	}

	if conf.ContactEmail != "" {
		addr, err := mail.ParseAddress(conf.ContactEmail)
		if err != nil {
			return fmt.Errorf("ContactEmail is invalid: %s", err.Error())
		}
		conf.ContactEmail = addr.Address
	}

	if conf.KeyType == "" {
		conf.KeyType = "rsa"
	}

	return nil
}

// NewClient creates a Client instance from the given ClientConfig. The
// client performs no network traffic until Init is called. If the config
// is not valid or the account key cannot be prepared an error is returned
// along with a nil Client.
func NewClient(config ClientConfig) (*Client, error) {
	if err := config.normalize(); err != nil {
		return nil, err
	}

	net, err := acmenet.New(config.CACert)
	if err != nil {
		return nil, fmt.Errorf("unable to create ACME net client: %w", err)
	}

	// Safe to discard the error: normalize parsed the URL already.
	rootURL, _ := url.Parse(config.RootURL)

	client := &Client{
		RootURL:      rootURL,
		Output:       config.InitialOutput,
		net:          net,
		directory:    resources.NewDirectory(rootURL),
		contactEmail: config.ContactEmail,
	}

	if config.AccountPath != "" {
		if err := client.RestoreAccount(config.AccountPath); err != nil {
			return nil, fmt.Errorf("error restoring account from %q: %w",
				config.AccountPath, err)
		}
		log.Printf("Restored account %q from %q\n",
			client.Registration.URL, config.AccountPath)
	}

	if client.Signer == nil {
		signer, err := keys.NewSigner(config.KeyType)
		if err != nil {
			return nil, err
		}
		client.Signer = signer
		log.Printf("Generated new %s account key\n", config.KeyType)
	}

	return client, nil
}

// Init primes the client session: it fetches the server's directory
// document, which both resolves the resource URLs and captures the first
// replay nonce from the response. Init must complete before any signed
// operation.
func (c *Client) Init(ctx context.Context) error {
	return c.UpdateDirectory(ctx)
}
