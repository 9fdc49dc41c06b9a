package shell

import (
	"context"
	"flag"
	"os"

	"github.com/abiosoft/ishell"

	acmeclient "github.com/ebekker/acmekit/acme/client"
	"github.com/ebekker/acmekit/acme/pki"
)

type newCertOptions struct {
	keyType string
	out     string
}

type newCertCmd struct {
	cmd *ishell.Cmd
}

var newCert newCertCmd = newCertCmd{
	cmd: &ishell.Cmd{
		Name:     "newCert",
		Aliases:  []string{"issue"},
		Func:     newCertHandler,
		Help:     "Request a certificate for one or more authorized domains",
		LongHelp: "usage: newCert [-keyType rsa|ecdsa] [-out prefix] <domain> [domain...]\nA fresh subject key and CSR are generated; with -out the key and certificate are written as <prefix>.key.pem and <prefix>.cert.pem",
	},
}

func (n newCertCmd) New(client *acmeclient.Client) *ishell.Cmd {
	return newCert.cmd
}

func newCertHandler(c *ishell.Context) {
	opts := newCertOptions{}
	newCertFlags := flag.NewFlagSet("newCert", flag.ContinueOnError)
	newCertFlags.StringVar(&opts.keyType, "keyType", "rsa", "Subject key type: rsa or ecdsa")
	newCertFlags.StringVar(&opts.out, "out", "", "File prefix to write the key and certificate PEM to")

	err := newCertFlags.Parse(c.Args)
	if err != nil && err != flag.ErrHelp {
		c.Printf("newCert: error parsing input flags: %s\n", err.Error())
		return
	} else if err == flag.ErrHelp {
		return
	}

	domains := newCertFlags.Args()
	if len(domains) == 0 {
		c.Printf("newCert: you must specify at least one domain\n")
		return
	}

	client := getClient(c)
	ctx := context.Background()
	tool := pki.NewTool()

	subjectKey, err := tool.GeneratePrivateKey(opts.keyType)
	if err != nil {
		c.Printf("newCert: error generating subject key: %s\n", err.Error())
		return
	}
	csrDER, err := tool.GenerateCSR(subjectKey, domains)
	if err != nil {
		c.Printf("newCert: error generating CSR: %s\n", err.Error())
		return
	}

	certReq, err := client.RequestCertificate(ctx, csrDER)
	if err != nil {
		c.Printf("newCert: %s\n", err.Error())
		return
	}
	if err := client.WaitCertificate(ctx, certReq); err != nil {
		c.Printf("newCert: %s\n", err.Error())
		return
	}
	getCertSlot(c).req = certReq

	c.Printf("Certificate URL: %s\n", certReq.URL)
	if opts.out == "" {
		return
	}

	keyPEM, err := tool.ExportPrivateKey(subjectKey)
	if err != nil {
		c.Printf("newCert: error exporting subject key: %s\n", err.Error())
		return
	}
	if err := os.WriteFile(opts.out+".key.pem", keyPEM, 0600); err != nil {
		c.Printf("newCert: error writing key file: %s\n", err.Error())
		return
	}

	certPEM, err := tool.ExportCertificate(certReq.Certificate)
	if err != nil {
		c.Printf("newCert: error exporting certificate: %s\n", err.Error())
		return
	}
	if err := os.WriteFile(opts.out+".cert.pem", certPEM, 0644); err != nil {
		c.Printf("newCert: error writing certificate file: %s\n", err.Error())
		return
	}
	c.Printf("Wrote %s.key.pem and %s.cert.pem\n", opts.out, opts.out)
}
