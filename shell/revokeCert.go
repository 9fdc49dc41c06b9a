package shell

import (
	"context"
	"encoding/pem"
	"os"

	"github.com/abiosoft/ishell"

	acmeclient "github.com/ebekker/acmekit/acme/client"
)

type revokeCertCmd struct {
	cmd *ishell.Cmd
}

var revokeCert revokeCertCmd = revokeCertCmd{
	cmd: &ishell.Cmd{
		Name:     "revokeCert",
		Aliases:  []string{"revoke"},
		Func:     revokeCertHandler,
		Help:     "Revoke a certificate",
		LongHelp: "usage: revokeCert [certificate.pem]\nWithout an argument the session's issued certificate is revoked",
	},
}

func (r revokeCertCmd) New(client *acmeclient.Client) *ishell.Cmd {
	return revokeCert.cmd
}

func revokeCertHandler(c *ishell.Context) {
	var certDER []byte
	if len(c.Args) > 0 {
		pemBytes, err := os.ReadFile(c.Args[0])
		if err != nil {
			c.Printf("revokeCert: error reading %q: %s\n", c.Args[0], err.Error())
			return
		}
		block, _ := pem.Decode(pemBytes)
		if block == nil || block.Type != "CERTIFICATE" {
			c.Printf("revokeCert: no CERTIFICATE PEM block in %q\n", c.Args[0])
			return
		}
		certDER = block.Bytes
	} else {
		certReq := getCertSlot(c).req
		if certReq == nil || !certReq.Issued() {
			c.Printf("revokeCert: no issued certificate in this session\n")
			return
		}
		certDER = certReq.Certificate
	}

	client := getClient(c)
	if err := client.RevokeCertificate(context.Background(), certDER); err != nil {
		c.Printf("revokeCert: %s\n", err.Error())
		return
	}
	c.Printf("Certificate revoked\n")
}
