package shell

import (
	"context"
	"flag"
	"strings"

	"github.com/abiosoft/ishell"

	acmeclient "github.com/ebekker/acmekit/acme/client"
)

type registerOptions struct {
	contact  string
	agreeTos bool
}

type registerCmd struct {
	cmd *ishell.Cmd
}

var register registerCmd = registerCmd{
	cmd: &ishell.Cmd{
		Name:     "register",
		Aliases:  []string{"newReg"},
		Func:     registerHandler,
		Help:     "Register the session account key with the ACME server",
		LongHelp: "Registering a key that is already registered fetches the existing registration instead of failing",
	},
}

func (r registerCmd) New(client *acmeclient.Client) *ishell.Cmd {
	return register.cmd
}

func registerHandler(c *ishell.Context) {
	opts := registerOptions{}
	registerFlags := flag.NewFlagSet("register", flag.ContinueOnError)
	registerFlags.StringVar(&opts.contact, "contact", "", "Comma separated mailto: contact URIs")
	registerFlags.BoolVar(&opts.agreeTos, "tos", false, "Agree to the server's terms of service")

	err := registerFlags.Parse(c.Args)
	if err != nil && err != flag.ErrHelp {
		c.Printf("register: error parsing input flags: %s\n", err.Error())
		return
	} else if err == flag.ErrHelp {
		return
	}

	client := getClient(c)

	var contacts []string
	for _, contact := range strings.Split(opts.contact, ",") {
		contact = strings.TrimSpace(contact)
		if contact == "" {
			continue
		}
		if !strings.Contains(contact, ":") {
			contact = "mailto:" + contact
		}
		contacts = append(contacts, contact)
	}

	reg, err := client.Register(context.Background(), contacts)
	if err != nil {
		c.Printf("register: %s\n", err.Error())
		return
	}

	if opts.agreeTos {
		reg, err = client.UpdateRegistration(context.Background(), reg, true, nil)
		if err != nil {
			c.Printf("register: error agreeing to terms: %s\n", err.Error())
			return
		}
	}

	c.Printf("Registration URL: %s\n", reg.URL)
	if reg.TermsOfService != "" {
		c.Printf("Terms of service: %s (agreed: %v)\n",
			reg.TermsOfService, reg.TermsAgreed())
	}
}
