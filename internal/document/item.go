package document

import (
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// repeatedTags are the element names the Query APIs use for list entries.
var repeatedTags = map[string]bool{"item": true, "member": true}

// Item is the field mapping of one repeated node. Leaf children become text fields,
// containers become nested groups, and containers of item/member children become
// nested sets. Every accessor returns a zero value when the path is absent.
type Item struct {
	value  string
	fields map[string]string
	groups map[string]Item
	sets   map[string][]Item
}

func newItem(el *etree.Element) Item {
	it := Item{
		value:  strings.TrimSpace(el.Text()),
		fields: make(map[string]string),
		groups: make(map[string]Item),
		sets:   make(map[string][]Item),
	}
	for _, child := range el.ChildElements() {
		grand := child.ChildElements()
		switch {
		case len(grand) == 0:
			it.fields[child.Tag] = strings.TrimSpace(child.Text())
		case allRepeated(grand):
			set := make([]Item, 0, len(grand))
			for _, g := range grand {
				set = append(set, newItem(g))
			}
			it.sets[child.Tag] = set
		default:
			it.groups[child.Tag] = newItem(child)
		}
	}
	return it
}

func allRepeated(elems []*etree.Element) bool {
	for _, el := range elems {
		if !repeatedTags[el.Tag] {
			return false
		}
	}
	return true
}

// resolve walks the group part of path and returns the owning item and the last segment.
func (it Item) resolve(path string) (Item, string, bool) {
	parts := strings.Split(path, "/")
	cur := it
	for _, p := range parts[:len(parts)-1] {
		g, ok := cur.groups[p]
		if !ok {
			return Item{}, "", false
		}
		cur = g
	}
	return cur, parts[len(parts)-1], true
}

// Value is the text of a scalar list entry, such as <member>us-east-1a</member>.
func (it Item) Value() string {
	return it.value
}

// Has reports whether path names a field, group or set.
func (it Item) Has(path string) bool {
	owner, last, ok := it.resolve(path)
	if !ok {
		return false
	}
	if _, ok := owner.fields[last]; ok {
		return true
	}
	if _, ok := owner.groups[last]; ok {
		return true
	}
	_, ok = owner.sets[last]
	return ok
}

// String returns the text at path, or "".
func (it Item) String(path string) string {
	owner, last, ok := it.resolve(path)
	if !ok {
		return ""
	}
	return owner.fields[last]
}

// Int returns the integer at path, or 0 when absent or not a number.
func (it Item) Int(path string) int {
	n, err := strconv.Atoi(it.String(path))
	if err != nil {
		return 0
	}
	return n
}

// Bool returns true only for a literal "true" at path.
func (it Item) Bool(path string) bool {
	return strings.EqualFold(it.String(path), "true")
}

// Time returns the RFC 3339 timestamp at path, or the zero time.
func (it Item) Time(path string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, it.String(path))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Group returns the nested container at path, or an empty Item.
func (it Item) Group(path string) Item {
	owner, last, ok := it.resolve(path)
	if !ok {
		return Item{}
	}
	return owner.groups[last]
}

// Set returns the entries of the nested list at path. The result is never nil.
func (it Item) Set(path string) []Item {
	owner, last, ok := it.resolve(path)
	if !ok || owner.sets[last] == nil {
		return []Item{}
	}
	return owner.sets[last]
}

// Strings returns the scalar values of the nested list at path. The result is never nil.
func (it Item) Strings(path string) []string {
	set := it.Set(path)
	out := make([]string, 0, len(set))
	for _, e := range set {
		out = append(out, e.value)
	}
	return out
}
