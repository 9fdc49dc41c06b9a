package challenge

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/letsencrypt/challtestsrv"
)

// Handler publishes and withdraws the proof material for one challenge
// type. Implementations are selected by challenge type through the
// registry below; the host invokes Publish between generating an answer
// and submitting it.
type Handler interface {
	// The challenge type this handler can satisfy.
	Type() string
	// Publish makes the answer's proof material reachable by the CA.
	Publish(ctx context.Context, ans Answer) error
	// Withdraw removes previously published proof material.
	Withdraw(ctx context.Context, ans Answer) error
}

// HandlerFactory builds a Handler bound to a challenge response server.
type HandlerFactory func(srv *challtestsrv.ChallSrv) Handler

var (
	handlersMu       sync.Mutex
	handlerFactories = map[string]HandlerFactory{}
)

// MustRegisterHandler registers a handler factory for a challenge type.
// Handlers register themselves from init functions; registering the same
// type twice panics.
func MustRegisterHandler(challType string, factory HandlerFactory) {
	handlersMu.Lock()
	defer handlersMu.Unlock()

	if _, ok := handlerFactories[challType]; ok {
		panic(fmt.Sprintf("challenge handler for %q already registered", challType))
	}
	handlerFactories[challType] = factory
}

// NewHandler builds the registered handler for a challenge type, bound to
// the given challenge response server.
func NewHandler(challType string, srv *challtestsrv.ChallSrv) (Handler, error) {
	handlersMu.Lock()
	factory, ok := handlerFactories[challType]
	handlersMu.Unlock()

	if !ok {
		return nil, fmt.Errorf("no challenge handler registered for type %q", challType)
	}
	return factory(srv), nil
}

// HandlerTypes returns the registered challenge types in sorted order.
func HandlerTypes() []string {
	handlersMu.Lock()
	defer handlersMu.Unlock()

	var types []string
	for challType := range handlerFactories {
		types = append(types, challType)
	}
	sort.Strings(types)
	return types
}
