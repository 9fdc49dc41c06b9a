package shell

import (
	"context"

	"github.com/abiosoft/ishell"

	acmeclient "github.com/ebekker/acmekit/acme/client"
)

type pollCmd struct {
	cmd *ishell.Cmd
}

var poll pollCmd = pollCmd{
	cmd: &ishell.Cmd{
		Name:     "poll",
		Func:     pollHandler,
		Help:     "Poll an authorization until its status is decided",
		LongHelp: "usage: poll [domain]",
	},
}

func (p pollCmd) New(client *acmeclient.Client) *ishell.Cmd {
	return poll.cmd
}

func pollHandler(c *ishell.Context) {
	authz, err := pickAuthz(c, c.Args)
	if err != nil {
		c.Printf("poll: %s\n", err.Error())
		return
	}

	client := getClient(c)
	if _, err := client.WaitAuthorization(context.Background(), authz); err != nil {
		c.Printf("poll: %s\n", err.Error())
		return
	}

	c.Printf("Authorization %q is %q\n", authz.URL, authz.Status)
	for _, chall := range authz.Challenges {
		c.Printf("  challenge %q %s", chall.Type, chall.Status)
		if chall.Error != nil {
			c.Printf(" (%s: %s)", chall.Error.Type, chall.Error.Detail)
		}
		c.Printf("\n")
	}
}
