package aws

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yairfalse/cirrus/internal/document"
	"github.com/yairfalse/cirrus/internal/invoker"
	"github.com/yairfalse/cirrus/internal/query"
	"github.com/yairfalse/cirrus/pkg/cloud"
)

const testRegion = "us-west-2"

// fakeInvoker answers each action with a fixture or a canned error and records
// every request it sees.
type fakeInvoker struct {
	t *testing.T

	mu       sync.Mutex
	fixtures map[string]string
	errs     map[string]error
	requests []invoker.Request
}

func newFake(t *testing.T) *fakeInvoker {
	return &fakeInvoker{
		t:        t,
		fixtures: make(map[string]string),
		errs:     make(map[string]error),
	}
}

// serve answers action with testdata/<file>.
func (f *fakeInvoker) serve(action, file string) *fakeInvoker {
	data, err := os.ReadFile(filepath.Join("testdata", file))
	require.NoError(f.t, err)
	f.fixtures[action] = string(data)
	return f
}

// serveBody answers action with an inline document.
func (f *fakeInvoker) serveBody(action, body string) *fakeInvoker {
	f.fixtures[action] = body
	return f
}

func (f *fakeInvoker) fail(action string, err error) *fakeInvoker {
	f.errs[action] = err
	return f
}

func (f *fakeInvoker) Invoke(_ context.Context, req invoker.Request) (*document.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	action := req.Action()
	if err, ok := f.errs[action]; ok {
		return nil, err
	}
	body, ok := f.fixtures[action]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", action)
	}
	return document.ParseString(body)
}

// actions returns the Action of every request in order.
func (f *fakeInvoker) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r.Action())
	}
	return out
}

// last returns the params of the most recent request for action.
func (f *fakeInvoker) last(action string) query.Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i].Action() == action {
			return f.requests[i].Params
		}
	}
	f.t.Fatalf("no %s request sent", action)
	return nil
}

func newTestProvider(t *testing.T, inv invoker.Invoker) *Provider {
	p, err := New(inv, Config{Region: testRegion})
	require.NoError(t, err)
	return p
}

func fault(service, action, code string) error {
	return &cloud.CloudError{Service: service, Action: action, StatusCode: 400, Code: code, Message: code}
}

func param(t *testing.T, params query.Params, key string) string {
	t.Helper()
	v, ok := params.Get(key)
	require.True(t, ok, "missing param %s in %v", key, params)
	return v
}
