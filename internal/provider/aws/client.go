package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/yairfalse/cirrus/internal/document"
	"github.com/yairfalse/cirrus/internal/invoker"
	"github.com/yairfalse/cirrus/internal/query"
	"github.com/yairfalse/cirrus/pkg/cloud"
)

// client issues calls for one service.
type client struct {
	service string
	inv     invoker.Invoker
}

func (c client) call(ctx context.Context, b *query.Builder) (*document.Document, error) {
	return c.inv.Invoke(ctx, invoker.Request{Service: c.service, Params: b.Params()})
}

// paginate re-issues the request built by next until the response carries no token
// at tokenPath. fn sees every page in order.
func (c client) paginate(ctx context.Context, tokenPath, tokenParam string, next func() *query.Builder, fn func(*document.Document) error) error {
	token := ""
	for {
		b := next()
		if token != "" {
			b.Set(tokenParam, token)
		}
		doc, err := c.call(ctx, b)
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
		tok := doc.Text(tokenPath)
		if tok == "" || tok == token {
			return nil
		}
		token = tok
	}
}

// hasCode reports whether err is a provider fault with one of codes.
func hasCode(err error, codes ...string) bool {
	var cerr *cloud.CloudError
	if !errors.As(err, &cerr) {
		return false
	}
	for _, c := range codes {
		if cerr.Code == c {
			return true
		}
	}
	return false
}

// single reduces a get-by-id listing to at most one entity.
func single[T any](kind, id string, found []T) (*T, error) {
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("get %s %s: %d results: %w", kind, id, len(found), cloud.ErrAmbiguousResult)
	}
}
