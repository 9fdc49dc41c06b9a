package challenge

import (
	"context"
	"fmt"

	"github.com/letsencrypt/challtestsrv"
)

// dnsHandler publishes dns challenge TXT records through a challenge
// response server acting as the authoritative resolver for the identifier.
// The server serves stored values verbatim, so the precomputed key
// authorization digest is what gets published, never the raw key
// authorization.
type dnsHandler struct {
	srv *challtestsrv.ChallSrv
}

func (h dnsHandler) Type() string {
	return TypeDNS
}

func (h dnsHandler) Publish(_ context.Context, ans Answer) error {
	dnsAns, ok := ans.(*DNSAnswer)
	if !ok {
		return fmt.Errorf("dns handler got a %T answer", ans)
	}
	h.srv.AddDNSOneChallenge(dnsAns.RecordName, dnsAns.RecordValue)
	return nil
}

func (h dnsHandler) Withdraw(_ context.Context, ans Answer) error {
	dnsAns, ok := ans.(*DNSAnswer)
	if !ok {
		return fmt.Errorf("dns handler got a %T answer", ans)
	}
	h.srv.DeleteDNSOneChallenge(dnsAns.RecordName)
	return nil
}

func init() {
	MustRegisterHandler(TypeDNS, func(srv *challtestsrv.ChallSrv) Handler {
		return dnsHandler{srv: srv}
	})
}
