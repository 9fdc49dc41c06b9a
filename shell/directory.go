package shell

import (
	"context"
	"flag"

	"github.com/abiosoft/ishell"

	acmeclient "github.com/ebekker/acmekit/acme/client"
)

type directoryOptions struct {
	refresh bool
}

type directoryCmd struct {
	cmd *ishell.Cmd
}

var directory directoryCmd = directoryCmd{
	cmd: &ishell.Cmd{
		Name:     "directory",
		Aliases:  []string{"dir"},
		Func:     directoryHandler,
		Help:     "Print the server's resource directory",
		LongHelp: "usage: directory [-refresh]",
	},
}

func (d directoryCmd) New(client *acmeclient.Client) *ishell.Cmd {
	return directory.cmd
}

func directoryHandler(c *ishell.Context) {
	opts := directoryOptions{}
	directoryFlags := flag.NewFlagSet("directory", flag.ContinueOnError)
	directoryFlags.BoolVar(&opts.refresh, "refresh", false, "Fetch the directory document again")

	err := directoryFlags.Parse(c.Args)
	if err != nil && err != flag.ErrHelp {
		c.Printf("directory: error parsing input flags: %s\n", err.Error())
		return
	} else if err == flag.ErrHelp {
		return
	}

	client := getClient(c)
	if opts.refresh {
		if err := client.UpdateDirectory(context.Background()); err != nil {
			c.Printf("directory: %s\n", err.Error())
			return
		}
	}

	dir := client.Directory()
	for _, resource := range dir.Resources() {
		resourceURL, err := dir.URL(resource)
		if err != nil {
			continue
		}
		c.Printf("%-12s %s\n", resource, resourceURL)
	}
}
