package trpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"gfx.cafe/open/jrpc"
	"gfx.cafe/open/jrpc/pkg/jsonrpc"
)

// Kind says how a procedure may be invoked.
type Kind string

const (
	KindQuery    Kind = "query"
	KindMutation Kind = "mutation"
)

// HandlerFunc runs one procedure against its raw wire params.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

type Procedure struct {
	Path    string
	Kind    Kind
	Handler HandlerFunc
}

// Router dispatches calls to registered procedures by path. Registration
// happens at startup; serving is read-only, so no locking.
type Router struct {
	procedures map[string]Procedure
}

func NewRouter() *Router {
	return &Router{
		procedures: make(map[string]Procedure),
	}
}

func (T *Router) Handle(p Procedure) error {
	if p.Path == "" {
		return fmt.Errorf("procedure path must not be empty")
	}
	if p.Handler == nil {
		return fmt.Errorf("procedure %q has no handler", p.Path)
	}
	switch p.Kind {
	case KindQuery, KindMutation:
	default:
		return fmt.Errorf("procedure %q has unknown kind %q", p.Path, p.Kind)
	}
	if _, ok := T.procedures[p.Path]; ok {
		return fmt.Errorf("procedure %q registered twice", p.Path)
	}
	T.procedures[p.Path] = p
	return nil
}

// KindOf reports the kind of a registered procedure.
func (T *Router) KindOf(path string) (Kind, bool) {
	p, ok := T.procedures[path]
	return p.Kind, ok
}

// Paths returns every registered procedure path, sorted.
func (T *Router) Paths() []string {
	out := make([]string, 0, len(T.procedures))
	for path := range T.procedures {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

func (T *Router) ServeRPC(w jsonrpc.ResponseWriter, r *jsonrpc.Request) {
	p, ok := T.procedures[r.Method]
	if !ok {
		_ = w.Send(nil, jsonrpc.NewMethodNotFoundError(r.Method))
		return
	}
	result, err := p.Handler(r.Context(), json.RawMessage(r.Params))
	_ = w.Send(result, err)
}

var _ jrpc.Handler = (*Router)(nil)
