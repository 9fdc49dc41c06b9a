package shell

import (
	"flag"

	"github.com/abiosoft/ishell"

	"github.com/ebekker/acmekit/acme/challenge"
	acmeclient "github.com/ebekker/acmekit/acme/client"
)

type keyAuthOptions struct {
	challType string
}

type keyAuthCmd struct {
	cmd *ishell.Cmd
}

var keyAuth keyAuthCmd = keyAuthCmd{
	cmd: &ishell.Cmd{
		Name:     "keyAuth",
		Func:     keyAuthHandler,
		Help:     "Compute the key authorization for a challenge without submitting it",
		LongHelp: "usage: keyAuth -type <dns|http|tls-sni> [domain]",
	},
}

func (k keyAuthCmd) New(client *acmeclient.Client) *ishell.Cmd {
	return keyAuth.cmd
}

func keyAuthHandler(c *ishell.Context) {
	opts := keyAuthOptions{}
	keyAuthFlags := flag.NewFlagSet("keyAuth", flag.ContinueOnError)
	keyAuthFlags.StringVar(&opts.challType, "type", challenge.TypeHTTP, "Challenge type to answer")

	err := keyAuthFlags.Parse(c.Args)
	if err != nil && err != flag.ErrHelp {
		c.Printf("keyAuth: error parsing input flags: %s\n", err.Error())
		return
	} else if err == flag.ErrHelp {
		return
	}

	authz, err := pickAuthz(c, keyAuthFlags.Args())
	if err != nil {
		c.Printf("keyAuth: %s\n", err.Error())
		return
	}

	client := getClient(c)
	ans, err := client.GenerateChallengeAnswer(authz, opts.challType)
	if err != nil {
		c.Printf("keyAuth: %s\n", err.Error())
		return
	}

	c.Printf("Key authorization: %s\n", ans.KeyAuthorization())
	switch a := ans.(type) {
	case *challenge.DNSAnswer:
		c.Printf("TXT record: %s\n", a.RecordName)
		c.Printf("TXT value: %s\n", a.RecordValue)
	case *challenge.HTTPAnswer:
		c.Printf("Path: %s\n", a.Path)
	case *challenge.TLSSNIAnswer:
		c.Printf("Validation name: %s\n", a.ValidationName)
	}
}
