package challenge

import (
	"context"
	"fmt"

	"github.com/letsencrypt/challtestsrv"
)

// httpHandler serves http challenge bodies through a challenge response
// server listening on the CA's validation port.
type httpHandler struct {
	srv *challtestsrv.ChallSrv
}

func (h httpHandler) Type() string {
	return TypeHTTP
}

func (h httpHandler) Publish(_ context.Context, ans Answer) error {
	httpAns, ok := ans.(*HTTPAnswer)
	if !ok {
		return fmt.Errorf("http handler got a %T answer", ans)
	}
	h.srv.AddHTTPOneChallenge(httpAns.Part().Token, httpAns.Body)
	return nil
}

func (h httpHandler) Withdraw(_ context.Context, ans Answer) error {
	httpAns, ok := ans.(*HTTPAnswer)
	if !ok {
		return fmt.Errorf("http handler got a %T answer", ans)
	}
	h.srv.DeleteHTTPOneChallenge(httpAns.Part().Token)
	return nil
}

func init() {
	MustRegisterHandler(TypeHTTP, func(srv *challtestsrv.ChallSrv) Handler {
		return httpHandler{srv: srv}
	})
}
