// acmekit provides a developer-oriented command-line shell interface for
// interacting with an ACME v1 server.
package main

import (
	"context"
	"flag"

	acmeclient "github.com/ebekker/acmekit/acme/client"
	acmecmd "github.com/ebekker/acmekit/cmd"
	acmeshell "github.com/ebekker/acmekit/shell"
)

const (
	SERVER_DEFAULT    = "https://acme-staging.api.letsencrypt.org"
	CA_DEFAULT        = ""
	CONTACT_DEFAULT   = ""
	ACCOUNT_DEFAULT   = ""
	KEY_TYPE_DEFAULT  = "rsa"
	HTTP_PORT_DEFAULT = 5002
	TLS_PORT_DEFAULT  = 5001
	DNS_PORT_DEFAULT  = 5252
)

func main() {
	server := flag.String(
		"server",
		SERVER_DEFAULT,
		"Base URL for the ACME server")

	caCert := flag.String(
		"ca",
		CA_DEFAULT,
		"CA certificate(s) for verifying ACME server HTTPS")

	email := flag.String(
		"contact",
		CONTACT_DEFAULT,
		"Optional contact email address for the ACME account")

	acctPath := flag.String(
		"account",
		ACCOUNT_DEFAULT,
		"Optional JSON filepath to restore a saved ACME account from")

	keyType := flag.String(
		"keyType",
		KEY_TYPE_DEFAULT,
		"Account key type for a fresh account: rsa or ecdsa")

	httpPort := flag.Int(
		"httpPort",
		HTTP_PORT_DEFAULT,
		"http challenge server port")

	tlsPort := flag.Int(
		"tlsPort",
		TLS_PORT_DEFAULT,
		"tls-sni challenge server port")

	dnsPort := flag.Int(
		"dnsPort",
		DNS_PORT_DEFAULT,
		"dns challenge server port")

	verbose := flag.Bool(
		"verbose",
		false,
		"Print requests, responses and JWS bodies")

	flag.Parse()

	config := &acmeshell.Options{
		ClientConfig: acmeclient.ClientConfig{
			RootURL:      *server,
			CACert:       *caCert,
			ContactEmail: *email,
			AccountPath:  *acctPath,
			KeyType:      *keyType,
			InitialOutput: acmeclient.OutputOptions{
				PrintRequests:  *verbose,
				PrintResponses: *verbose,
				PrintJWS:       *verbose,
			},
		},
		HTTPPort: *httpPort,
		TLSPort:  *tlsPort,
		DNSPort:  *dnsPort,
	}

	shell := acmeshell.New(config)

	client := shell.Get(acmeshell.ClientKey).(*acmeclient.Client)
	err := client.Init(context.Background())
	acmecmd.FailOnError(err, "Unable to fetch ACME server directory")

	shell.Run()
}
