package shell

import (
	"github.com/abiosoft/ishell"

	acmeclient "github.com/ebekker/acmekit/acme/client"
)

type loadAccountCmd struct {
	cmd *ishell.Cmd
}

var loadAccount loadAccountCmd = loadAccountCmd{
	cmd: &ishell.Cmd{
		Name:     "loadAccount",
		Func:     loadAccountHandler,
		Help:     "Load an account key and registration from a JSON file",
		LongHelp: "usage: loadAccount <path>\nReplaces the session's account key and registration",
	},
}

func (l loadAccountCmd) New(client *acmeclient.Client) *ishell.Cmd {
	return loadAccount.cmd
}

func loadAccountHandler(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Printf("loadAccount: you must specify a file path\n")
		return
	}

	client := getClient(c)
	if err := client.RestoreAccount(c.Args[0]); err != nil {
		c.Printf("loadAccount: %s\n", err.Error())
		return
	}
	c.Printf("Loaded account %q from %q\n", client.Registration.URL, c.Args[0])
}
