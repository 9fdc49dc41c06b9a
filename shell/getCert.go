package shell

import (
	"context"
	"flag"

	"github.com/abiosoft/ishell"

	acmeclient "github.com/ebekker/acmekit/acme/client"
	"github.com/ebekker/acmekit/acme/pki"
)

type getCertOptions struct {
	issuer bool
}

type getCertCmd struct {
	cmd *ishell.Cmd
}

var getCert getCertCmd = getCertCmd{
	cmd: &ishell.Cmd{
		Name:     "getCert",
		Func:     getCertHandler,
		Help:     "Print the session's issued certificate as PEM",
		LongHelp: "usage: getCert [-issuer]\nWith -issuer the issuer certificate is fetched and printed too",
	},
}

func (g getCertCmd) New(client *acmeclient.Client) *ishell.Cmd {
	return getCert.cmd
}

func getCertHandler(c *ishell.Context) {
	opts := getCertOptions{}
	getCertFlags := flag.NewFlagSet("getCert", flag.ContinueOnError)
	getCertFlags.BoolVar(&opts.issuer, "issuer", false, "Also fetch and print the issuer certificate")

	err := getCertFlags.Parse(c.Args)
	if err != nil && err != flag.ErrHelp {
		c.Printf("getCert: error parsing input flags: %s\n", err.Error())
		return
	} else if err == flag.ErrHelp {
		return
	}

	certReq := getCertSlot(c).req
	if certReq == nil {
		c.Printf("getCert: no certificate request in this session; run newCert first\n")
		return
	}

	client := getClient(c)
	ctx := context.Background()
	if !certReq.Issued() {
		if err := client.RefreshCertificateRequest(ctx, certReq); err != nil {
			c.Printf("getCert: %s\n", err.Error())
			return
		}
		if !certReq.Issued() {
			c.Printf("getCert: certificate %q not issued yet, retry in %s\n",
				certReq.URL, certReq.RetryAfter)
			return
		}
	}

	tool := pki.NewTool()
	certPEM, err := tool.ExportCertificate(certReq.Certificate)
	if err != nil {
		c.Printf("getCert: error exporting certificate: %s\n", err.Error())
		return
	}
	c.Printf("%s", certPEM)

	if opts.issuer {
		issuerDER, err := client.FetchIssuerCertificate(ctx, certReq)
		if err != nil {
			c.Printf("getCert: error fetching issuer certificate: %s\n", err.Error())
			return
		}
		issuerPEM, err := tool.ExportCertificate(issuerDER)
		if err != nil {
			c.Printf("getCert: error exporting issuer certificate: %s\n", err.Error())
			return
		}
		c.Printf("%s", issuerPEM)
	}
}
