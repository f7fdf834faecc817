package graph

import (
	"encoding"
	"reflect"
	"strings"
)

// Kind is the shape of a Node.
type Kind uint8

const (
	KindNull   Kind = iota // explicit nil
	KindScalar             // text, number or bool
	KindObject             // struct, fields in declaration order
	KindArray              // slice or array
	KindMap                // map, entries sorted by key
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// ScalarType tells a renderer how to print Node.Text.
type ScalarType uint8

const (
	ScalarString ScalarType = iota
	ScalarNumber
	ScalarBool
)

// Node is one value of the ordered value graph both format codecs render.
type Node struct {
	Kind   Kind
	Scalar ScalarType
	Text   string
	// Type is the concrete type name of a value held in an interface typed position, empty otherwise.
	Type   string
	Fields []Field
	Items  []*Node
}

// Field is a named child of an object node or a keyed entry of a map node.
type Field struct {
	Name string
	Node *Node
}

// Null returns a null node.
func Null() *Node {
	return &Node{Kind: KindNull}
}

// StringNode returns a string scalar.
func StringNode(s string) *Node {
	return &Node{Kind: KindScalar, Scalar: ScalarString, Text: s}
}

// children returns the ordered child nodes of an array like node. Markup input has no array
// distinction, so object fields are accepted as items as well. An empty scalar is an empty container.
func (n *Node) children() ([]*Node, bool) {
	switch n.Kind {
	case KindArray:
		return n.Items, true
	case KindObject, KindMap:
		items := make([]*Node, len(n.Fields))
		for i, f := range n.Fields {
			items[i] = f.Node
		}
		return items, true
	case KindScalar:
		return nil, n.Text == ""
	default:
		return nil, false
	}
}

// entries returns the named children of an object or map like node.
func (n *Node) entries() ([]Field, bool) {
	switch n.Kind {
	case KindObject, KindMap:
		return n.Fields, true
	case KindScalar:
		return nil, n.Text == ""
	default:
		return nil, false
	}
}

// --------------------------------------------------------------------------
// Policy
// --------------------------------------------------------------------------

// Policy carries the per-codec rules the graph translation follows.
type Policy struct {
	// TagKey is the struct tag consulted for field names ("json", "xml").
	TagKey string
	// OmitDefaults drops fields that hold their type's zero value. Nil references are always dropped.
	OmitDefaults bool
	// TypeName names the concrete type of a value held in an interface typed position.
	TypeName func(t reflect.Type) (string, error)
	// ResolveType maps a name produced by TypeName back to a type.
	ResolveType func(name string) (reflect.Type, error)
	// TypeMember and ValueMember name the object members that carry the concrete type of an interface
	// typed value in formats without attributes. They are only interpreted for interface typed slots,
	// everywhere else they are ordinary keys. Empty disables the lookup.
	TypeMember  string
	ValueMember string
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

var (
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

type fieldInfo struct {
	index int
	name  string
}

// fieldsOf lists the serializable fields of struct type t in declaration order
func fieldsOf(t reflect.Type, tagKey string) []fieldInfo {
	out := make([]fieldInfo, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup(tagKey); ok {
			if tag == "-" {
				continue
			}
			if n, _, _ := strings.Cut(tag, ","); n != "" {
				name = n
			}
		}
		out = append(out, fieldInfo{index: i, name: name})
	}
	return out
}

// isNil reports whether v is a nil reference, looking through an interface at the value it holds
func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface:
		return v.IsNil() || isNil(v.Elem())
	case reflect.Pointer, reflect.Map, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

// isBytes reports whether t is encoded as a base64 scalar
func isBytes(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 &&
		!t.Elem().Implements(textMarshalerType) && !reflect.PointerTo(t.Elem()).Implements(textUnmarshalerType)
}
