// Package document decodes Query API XML responses into generic field mappings.
// It knows nothing about the resources it reads.
package document

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"

	"github.com/yairfalse/cirrus/pkg/cloud"
)

// Document is a parsed response. It is read-only once built.
type Document struct {
	root *etree.Element
}

// Parse reads a whole response body.
func Parse(r io.Reader) (*Document, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", cloud.ErrInternal, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: parse response: no root element", cloud.ErrInternal)
	}
	return &Document{root: root}, nil
}

// ParseString is Parse over an in-memory body.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Items returns one Item per element at path, in document order. The path is relative
// to the root and its last segment is the repeated tag, as in "reservationSet/item".
func (d *Document) Items(path string) []Item {
	elems := d.root.FindElements(path)
	items := make([]Item, 0, len(elems))
	for _, el := range elems {
		items = append(items, newItem(el))
	}
	return items
}

// Text returns the trimmed text of the first element at path, or "".
func (d *Document) Text(path string) string {
	el := d.root.FindElement(path)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

// Fault is the error body of a rejected request.
type Fault struct {
	Type      string
	Code      string
	Message   string
	RequestID string
}

// Fault extracts the first error of an EC2 (Response/Errors/Error) or Auto Scaling
// (ErrorResponse/Error) error document.
func (d *Document) Fault() (Fault, bool) {
	el := d.root
	if el.Tag != "Error" {
		el = d.root.FindElement(".//Error")
	}
	if el == nil {
		return Fault{}, false
	}
	f := Fault{
		Type:    childText(el, "Type"),
		Code:    childText(el, "Code"),
		Message: childText(el, "Message"),
	}
	for _, tag := range []string{"RequestID", "RequestId", "requestId"} {
		if id := d.Text(".//" + tag); id != "" {
			f.RequestID = id
			break
		}
	}
	return f, f.Code != ""
}

func childText(el *etree.Element, tag string) string {
	c := el.SelectElement(tag)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Text())
}
