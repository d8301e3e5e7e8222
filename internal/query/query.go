// Package query builds the ordered parameter sequence of a Query API request.
package query

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/google/btree"
)

// Param is a single key/value pair of a request.
type Param struct {
	Key   string
	Value string
}

// Params keeps parameters in insertion order so that encoding is reproducible.
type Params []Param

// Get returns the first value stored under key.
func (p Params) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Action returns the Action parameter, or "".
func (p Params) Action() string {
	v, _ := p.Get("Action")
	return v
}

// Encode form-encodes the parameters in order.
func (p Params) Encode() string {
	var sb strings.Builder
	for i, kv := range p {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(kv.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(kv.Value))
	}
	return sb.String()
}

// Builder appends parameters for one request. Filters are numbered from zero in the
// order they are added; an empty constraint consumes no index.
type Builder struct {
	params        Params
	filters       int
	memberFilters int
}

// New starts a request for action.
func New(action string) *Builder {
	return &Builder{params: Params{{Key: "Action", Value: action}}}
}

// From starts a builder over an already built parameter set, as when a paged request
// is re-issued with a continuation token. Filters added to it restart at index zero.
func From(params Params) *Builder {
	return &Builder{params: append(Params(nil), params...)}
}

// Set appends key=value. Empty values are dropped.
func (b *Builder) Set(key, value string) *Builder {
	if value == "" {
		return b
	}
	b.params = append(b.params, Param{Key: key, Value: value})
	return b
}

// SetInt appends key=value for a positive value.
func (b *Builder) SetInt(key string, value int) *Builder {
	if value <= 0 {
		return b
	}
	return b.Set(key, strconv.Itoa(value))
}

// SetBool appends key=true when value is set.
func (b *Builder) SetBool(key string, value bool) *Builder {
	if !value {
		return b
	}
	return b.Set(key, "true")
}

// List appends field.1 .. field.n.
func (b *Builder) List(field string, values []string) *Builder {
	for i, v := range values {
		b.params = append(b.params, Param{Key: fmt.Sprintf("%s.%d", field, i+1), Value: v})
	}
	return b
}

// MemberList appends field.member.1 .. field.member.n.
func (b *Builder) MemberList(field string, values []string) *Builder {
	return b.List(field+".member", values)
}

// Filter appends Filter.i.Name and Filter.i.Value.j for every value.
func (b *Builder) Filter(name string, values ...string) *Builder {
	if len(values) == 0 {
		return b
	}
	i := b.filters
	b.filters++
	b.params = append(b.params, Param{Key: fmt.Sprintf("Filter.%d.Name", i), Value: name})
	for j, v := range values {
		b.params = append(b.params, Param{Key: fmt.Sprintf("Filter.%d.Value.%d", i, j), Value: v})
	}
	return b
}

// TagFilters appends one tag:<key> filter per tag, in ascending key order.
func (b *Builder) TagFilters(tags map[string]string) *Builder {
	for _, k := range sortedKeys(tags) {
		b.Filter(TagFilterName(k), tags[k])
	}
	return b
}

// MemberFilter appends Filters.member.i.Name and Filters.member.i.Values.member.j,
// numbered from one, as the Auto Scaling API expects.
func (b *Builder) MemberFilter(name string, values ...string) *Builder {
	if len(values) == 0 {
		return b
	}
	b.memberFilters++
	prefix := fmt.Sprintf("Filters.member.%d", b.memberFilters)
	b.params = append(b.params, Param{Key: prefix + ".Name", Value: name})
	return b.MemberList(prefix+".Values", values)
}

// TagMemberFilters is TagFilters in the member-list encoding.
func (b *Builder) TagMemberFilters(tags map[string]string) *Builder {
	for _, k := range sortedKeys(tags) {
		b.MemberFilter(TagFilterName(k), tags[k])
	}
	return b
}

func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	tree := btree.NewOrderedG[string](8)
	for k := range m {
		tree.ReplaceOrInsert(k)
	}
	keys := make([]string, 0, tree.Len())
	tree.Ascend(func(k string) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Params returns a copy of the parameters built so far.
func (b *Builder) Params() Params {
	return append(Params(nil), b.params...)
}

// TagFilterName is the filter name that matches a tag key.
func TagFilterName(key string) string {
	return "tag:" + key
}

// Filter is a re-parsed filter constraint.
type Filter struct {
	Name   string
	Values []string
}

// ParseFilters reads the Filter.* parameters back into constraints. Indices must start
// at zero, be contiguous and be used once.
func ParseFilters(params Params) ([]Filter, error) {
	names := make(map[int]string)
	values := make(map[int]map[int]string)

	for _, kv := range params {
		if !strings.HasPrefix(kv.Key, "Filter.") {
			continue
		}
		parts := strings.Split(kv.Key, ".")
		i, err := strconv.Atoi(parts[1])
		if err != nil || len(parts) < 3 {
			return nil, fmt.Errorf("malformed filter key %q", kv.Key)
		}
		switch {
		case len(parts) == 3 && parts[2] == "Name":
			if _, dup := names[i]; dup {
				return nil, fmt.Errorf("filter index %d used twice", i)
			}
			names[i] = kv.Value
		case len(parts) == 4 && parts[2] == "Value":
			j, err := strconv.Atoi(parts[3])
			if err != nil {
				return nil, fmt.Errorf("malformed filter key %q", kv.Key)
			}
			if values[i] == nil {
				values[i] = make(map[int]string)
			}
			if _, dup := values[i][j]; dup {
				return nil, fmt.Errorf("filter %d value index %d used twice", i, j)
			}
			values[i][j] = kv.Value
		default:
			return nil, fmt.Errorf("malformed filter key %q", kv.Key)
		}
	}

	if err := contiguous(keysOf(names)); err != nil {
		return nil, fmt.Errorf("filter names: %w", err)
	}
	for i := range values {
		if _, ok := names[i]; !ok {
			return nil, fmt.Errorf("filter %d has values but no name", i)
		}
	}

	filters := make([]Filter, len(names))
	for i := range filters {
		vals := values[i]
		if err := contiguous(keysOf(vals)); err != nil {
			return nil, fmt.Errorf("filter %d values: %w", i, err)
		}
		if len(vals) == 0 {
			return nil, fmt.Errorf("filter %d has no values", i)
		}
		f := Filter{Name: names[i], Values: make([]string, len(vals))}
		for j := range f.Values {
			f.Values[j] = vals[j]
		}
		filters[i] = f
	}
	return filters, nil
}

func keysOf[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func contiguous(sorted []int) error {
	for want, got := range sorted {
		if got != want {
			return fmt.Errorf("index %d missing", want)
		}
	}
	return nil
}
