// Package shell provides an interactive command shell for driving an
// ACME client session against a test server.
package shell

import (
	"fmt"
	"log"
	"os"

	"github.com/abiosoft/ishell"
	"github.com/abiosoft/readline"
	"github.com/letsencrypt/challtestsrv"

	acmeclient "github.com/ebekker/acmekit/acme/client"
	"github.com/ebekker/acmekit/acme/resources"
	acmecmd "github.com/ebekker/acmekit/cmd"
)

const (
	ClientKey   = "client"
	ChallSrvKey = "challsrv"
	BasePrompt  = "[ ACME ] > "
)

// AcmeCmd builds one shell command bound to the session's client.
type AcmeCmd interface {
	New(client *acmeclient.Client) *ishell.Cmd
}

var Commands []AcmeCmd = []AcmeCmd{
	directory,
	register,
	newAuthz,
	keyAuth,
	solve,
	poll,
	newCert,
	getCert,
	revokeCert,
	saveAccount,
	loadAccount,
	echo,
}

// Options configures a new Shell: the client configuration plus the
// listen ports for the challenge response server.
type Options struct {
	acmeclient.ClientConfig
	// Port number the ACME server validates http challenges over.
	HTTPPort int
	// Port number the ACME server validates tls-sni challenges over.
	TLSPort int
	// Port number the ACME server validates dns challenges over.
	DNSPort int
}

// Shell is an ishell.Shell instance tailored for ACME. It couples one
// acme/client.Client session with a challtestsrv.ChallSrv that serves
// challenge responses while the session runs.
type Shell struct {
	*ishell.Shell
}

// New creates a Shell from the given Options: an ishell instance with the
// client and challenge server stashed in its context, and all of the ACME
// commands installed. The challenge server does not listen until Run.
func New(opts *Options) *Shell {
	shell := ishell.NewWithConfig(&readline.Config{
		Prompt: BasePrompt,
	})

	challSrv, err := challtestsrv.New(challtestsrv.Config{
		HTTPOneAddrs:    []string{fmt.Sprintf(":%d", opts.HTTPPort)},
		TLSALPNOneAddrs: []string{fmt.Sprintf(":%d", opts.TLSPort)},
		DNSOneAddrs:     []string{fmt.Sprintf(":%d", opts.DNSPort)},
		Log:             log.New(os.Stdout, "challRespSrv: ", log.Ldate|log.Ltime),
	})
	acmecmd.FailOnError(err, "Unable to create challenge test server")
	shell.Set(ChallSrvKey, challSrv)

	client, err := acmeclient.NewClient(opts.ClientConfig)
	acmecmd.FailOnError(err, "Unable to create ACME client")
	shell.Set(ClientKey, client)

	shell.Set(authzsKey, map[string]*resources.Authorization{})
	shell.Set(certKey, &certSlot{})

	for _, cmd := range Commands {
		shell.AddCmd(cmd.New(client))
	}

	return &Shell{
		Shell: shell,
	}
}

// Run starts the Shell, dropping into an interactive session that blocks
// on user input until it is time to exit. The challenge server is started
// before the shell and shut down after the session ends.
func (s *Shell) Run() {
	challSrv := s.Get(ChallSrvKey).(*challtestsrv.ChallSrv)
	go challSrv.Run()

	s.Println("Welcome to ACME Shell")
	s.Shell.Run()
	s.Println("Goodbye!")
	challSrv.Shutdown()
}

func getClient(c *ishell.Context) *acmeclient.Client {
	if c.Get(ClientKey) == nil {
		panic(fmt.Sprintf("nil %q value in ishell.Context", ClientKey))
	}

	rawClient := c.Get(ClientKey)
	switch c := rawClient.(type) {
	case *acmeclient.Client:
		return c
	}

	panic(fmt.Sprintf("%q value in ishell.Context was not a client", ClientKey))
}

func getChallSrv(c *ishell.Context) *challtestsrv.ChallSrv {
	if c.Get(ChallSrvKey) == nil {
		panic(fmt.Sprintf("nil %q value in ishell.Context", ChallSrvKey))
	}

	rawSrv := c.Get(ChallSrvKey)
	switch c := rawSrv.(type) {
	case *challtestsrv.ChallSrv:
		return c
	}

	panic(fmt.Sprintf("%q value in ishell.Context was not a *challtestsrv.ChallSrv", ChallSrvKey))
}
