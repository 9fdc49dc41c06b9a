package shell

import (
	"github.com/abiosoft/ishell"

	acmeclient "github.com/ebekker/acmekit/acme/client"
)

type saveAccountCmd struct {
	cmd *ishell.Cmd
}

var saveAccount saveAccountCmd = saveAccountCmd{
	cmd: &ishell.Cmd{
		Name:     "saveAccount",
		Func:     saveAccountHandler,
		Help:     "Save the session account key and registration to a JSON file",
		LongHelp: "usage: saveAccount <path>\nThe file holds the raw account key and must be kept private",
	},
}

func (s saveAccountCmd) New(client *acmeclient.Client) *ishell.Cmd {
	return saveAccount.cmd
}

func saveAccountHandler(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Printf("saveAccount: you must specify a file path\n")
		return
	}

	client := getClient(c)
	if err := client.SaveAccount(c.Args[0]); err != nil {
		c.Printf("saveAccount: %s\n", err.Error())
		return
	}
	c.Printf("Saved account %q to %q\n", client.Registration.URL, c.Args[0])
}
