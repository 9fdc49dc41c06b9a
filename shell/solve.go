package shell

import (
	"context"
	"flag"

	"github.com/abiosoft/ishell"

	"github.com/ebekker/acmekit/acme/challenge"
	acmeclient "github.com/ebekker/acmekit/acme/client"
)

type solveOptions struct {
	challType string
	wait      bool
}

type solveCmd struct {
	cmd *ishell.Cmd
}

var solve solveCmd = solveCmd{
	cmd: &ishell.Cmd{
		Name:     "solve",
		Aliases:  []string{"solveChallenge"},
		Func:     solveHandler,
		Help:     "Publish and submit a challenge answer",
		LongHelp: "usage: solve -type <dns|http> [-wait] [domain]\nThe answer is published on the session's challenge response server before submission",
	},
}

func (s solveCmd) New(client *acmeclient.Client) *ishell.Cmd {
	return solve.cmd
}

func solveHandler(c *ishell.Context) {
	opts := solveOptions{}
	solveFlags := flag.NewFlagSet("solve", flag.ContinueOnError)
	solveFlags.StringVar(&opts.challType, "type", challenge.TypeHTTP, "Challenge type to solve")
	solveFlags.BoolVar(&opts.wait, "wait", true, "Poll the authorization until it is decided")

	err := solveFlags.Parse(c.Args)
	if err != nil && err != flag.ErrHelp {
		c.Printf("solve: error parsing input flags: %s\n", err.Error())
		return
	} else if err == flag.ErrHelp {
		return
	}

	authz, err := pickAuthz(c, solveFlags.Args())
	if err != nil {
		c.Printf("solve: %s\n", err.Error())
		return
	}

	client := getClient(c)
	ctx := context.Background()

	ans, err := client.GenerateChallengeAnswer(authz, opts.challType)
	if err != nil {
		c.Printf("solve: %s\n", err.Error())
		return
	}

	handler, err := challenge.NewHandler(opts.challType, getChallSrv(c))
	if err != nil {
		c.Printf("solve: %s\n", err.Error())
		return
	}
	if err := handler.Publish(ctx, ans); err != nil {
		c.Printf("solve: error publishing challenge response: %s\n", err.Error())
		return
	}
	c.Printf("Challenge response ready\n")

	if _, err := client.SubmitChallengeAnswer(ctx, authz, ans, opts.wait); err != nil {
		c.Printf("solve: %s\n", err.Error())
		return
	}

	if opts.wait {
		if err := handler.Withdraw(ctx, ans); err != nil {
			c.Printf("solve: error withdrawing challenge response: %s\n", err.Error())
		}
		c.Printf("Authorization %q is %q\n", authz.URL, authz.Status)
	} else {
		c.Printf("Challenge submitted, authorization %q is %q\n", authz.URL, authz.Status)
	}
}
