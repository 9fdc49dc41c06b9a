package shell

import (
	"context"

	"github.com/abiosoft/ishell"

	acmeclient "github.com/ebekker/acmekit/acme/client"
)

type newAuthzCmd struct {
	cmd *ishell.Cmd
}

var newAuthz newAuthzCmd = newAuthzCmd{
	cmd: &ishell.Cmd{
		Name:     "newAuthz",
		Aliases:  []string{"authz"},
		Func:     newAuthzHandler,
		Help:     "Request an authorization for a DNS identifier",
		LongHelp: "usage: newAuthz <domain>",
	},
}

func (n newAuthzCmd) New(client *acmeclient.Client) *ishell.Cmd {
	return newAuthz.cmd
}

func newAuthzHandler(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Printf("newAuthz: you must specify exactly one domain\n")
		return
	}
	domain := c.Args[0]

	client := getClient(c)
	authz, err := client.AuthorizeIdentifier(context.Background(), domain)
	if err != nil {
		c.Printf("newAuthz: %s\n", err.Error())
		return
	}

	getAuthzs(c)[domain] = authz

	c.Printf("Authorization URL: %s\n", authz.URL)
	c.Printf("Status: %s\n", authz.Status)
	for _, chall := range authz.Challenges {
		c.Printf("  challenge %q %s (%s)\n", chall.Type, chall.Status, chall.URI)
	}
	for _, combo := range authz.Combinations {
		c.Printf("  combination: %v\n", combo)
	}
}
