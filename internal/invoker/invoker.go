// Package invoker sends Query API requests and returns the decoded response.
package invoker

import (
	"context"

	"github.com/yairfalse/cirrus/internal/document"
	"github.com/yairfalse/cirrus/internal/query"
)

// Services known to the transport.
const (
	ServiceEC2         = "ec2"
	ServiceAutoScaling = "autoscaling"
)

// apiVersions pins the wire version sent with every request of a service.
var apiVersions = map[string]string{
	ServiceEC2:         "2016-11-15",
	ServiceAutoScaling: "2011-01-01",
}

// Request is one Query API call.
type Request struct {
	Service string
	Params  query.Params
}

// Action is the value of the Action parameter.
func (r Request) Action() string {
	return r.Params.Action()
}

// Invoker executes a request. Implementations own retries, timeouts and signing;
// a rejected request is returned as a *cloud.CloudError.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*document.Document, error)
}

// Func adapts a function to the Invoker interface.
type Func func(ctx context.Context, req Request) (*document.Document, error)

func (f Func) Invoke(ctx context.Context, req Request) (*document.Document, error) {
	return f(ctx, req)
}
