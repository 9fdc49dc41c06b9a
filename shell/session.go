package shell

import (
	"fmt"
	"sort"

	"github.com/abiosoft/ishell"

	"github.com/ebekker/acmekit/acme/resources"
)

// Keys for per-session state shared between commands. The containers are
// installed once at shell construction and mutated in place by handlers.
const (
	authzsKey = "authzs"
	certKey   = "certRequest"
)

// certSlot holds the most recent certificate request of the session.
type certSlot struct {
	req *resources.CertificateRequest
}

func getAuthzs(c *ishell.Context) map[string]*resources.Authorization {
	authzs, ok := c.Get(authzsKey).(map[string]*resources.Authorization)
	if !ok {
		panic(fmt.Sprintf("%q value in ishell.Context was not an authz map", authzsKey))
	}
	return authzs
}

func getCertSlot(c *ishell.Context) *certSlot {
	slot, ok := c.Get(certKey).(*certSlot)
	if !ok {
		panic(fmt.Sprintf("%q value in ishell.Context was not a *certSlot", certKey))
	}
	return slot
}

// pickAuthz resolves a command's identifier argument to a stored
// authorization, falling back to a menu when the session holds more than
// one and no argument was given.
func pickAuthz(c *ishell.Context, args []string) (*resources.Authorization, error) {
	authzs := getAuthzs(c)
	if len(args) > 0 {
		authz, ok := authzs[args[0]]
		if !ok {
			return nil, fmt.Errorf("no authorization for %q in this session", args[0])
		}
		return authz, nil
	}

	if len(authzs) == 0 {
		return nil, fmt.Errorf("no authorizations in this session; run newAuthz first")
	}

	var names []string
	for name := range authzs {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 1 {
		return authzs[names[0]], nil
	}
	choice := c.MultiChoice(names, "Choose an authorization")
	return authzs[names[choice]], nil
}
