package procedures

import (
	"go.uber.org/fx"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/trpc"
)

type RouterParams struct {
	fx.In

	Procedures []trpc.Procedure `group:"procedure"`
}

// NewRouter registers every provided procedure. Registration failures (a
// duplicate path, a missing handler) abort startup.
func NewRouter(p RouterParams) (*trpc.Router, error) {
	router := trpc.NewRouter()
	for _, procedure := range p.Procedures {
		if err := router.Handle(procedure); err != nil {
			return nil, err
		}
	}
	return router, nil
}
