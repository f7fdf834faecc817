package jsoncodec

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"unicode/utf8"

	"github.com/ValentinKolb/dPersist/lib/cacheerr"
	"github.com/ValentinKolb/dPersist/lib/serializer/codec"
	"github.com/ValentinKolb/dPersist/lib/serializer/codec/internal/graph"
	"github.com/goccy/go-json"
)

const (
	typeKey  = "$type"
	valueKey = "$value"
)

// New creates the structured text codec. Only the types in reg (and predeclared types) may
// appear in interface typed positions, on write and on read alike.
func New(reg *codec.Registry) codec.Codec {
	if reg == nil {
		reg, _ = codec.NewRegistry()
	}
	return &jsonCodecImpl{reg: reg}
}

// jsonCodecImpl implements the codec.Codec interface using compact json
type jsonCodecImpl struct {
	reg *codec.Registry
}

func (c *jsonCodecImpl) policy() graph.Policy {
	return graph.Policy{
		TagKey:       "json",
		OmitDefaults: true,
		TypeName: func(t reflect.Type) (string, error) {
			if !c.reg.Known(t) {
				return "", cacheerr.NewWithDetail(cacheerr.ErrCConfig, fmt.Sprintf("type %s is not a known type", t))
			}
			return codec.NameOf(t), nil
		},
		ResolveType: func(name string) (reflect.Type, error) {
			if t, ok := c.reg.Lookup(name); ok {
				return t, nil
			}
			return nil, cacheerr.NewWithDetail(cacheerr.ErrCConfig, fmt.Sprintf("unknown type %q", name))
		},
		TypeMember:  typeKey,
		ValueMember: valueKey,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.Codec)
// --------------------------------------------------------------------------

func (c *jsonCodecImpl) Name() string {
	return "json"
}

func (c *jsonCodecImpl) Encode(w io.Writer, ptr any) error {
	v, err := target(ptr)
	if err != nil {
		return err
	}
	n, err := graph.Encode(v, c.policy())
	if err != nil {
		return cacheerr.Wrap(cacheerr.ErrCUnknown, "encode json", err)
	}
	doc, err := toDocument(n)
	if err != nil {
		return cacheerr.Wrap(cacheerr.ErrCUnknown, "encode json", err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return cacheerr.Wrap(cacheerr.ErrCUnknown, "encode json", err)
	}
	if _, err := w.Write(data); err != nil {
		return cacheerr.Wrap(cacheerr.ErrCUnknown, "write json", err)
	}
	return nil
}

func (c *jsonCodecImpl) Decode(r io.Reader, ptr any) error {
	v, err := target(ptr)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return cacheerr.Wrap(cacheerr.ErrCUnknown, "read json", err)
	}
	n, err := toNode(raw)
	if err != nil {
		return cacheerr.Wrap(cacheerr.ErrCUnknown, "read json", err)
	}
	if err := graph.Build(n, v, c.policy()); err != nil {
		return cacheerr.Wrap(cacheerr.ErrCUnknown, "decode json", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// target returns the settable value ptr points to
func target(ptr any) (reflect.Value, error) {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, cacheerr.NewWithDetail(cacheerr.ErrCConfig, fmt.Sprintf("json codec needs a non-nil pointer, got %T", ptr))
	}
	return rv.Elem(), nil
}

// toDocument converts n into the generic values the json encoder writes. Objects become maps,
// so members are written in sorted key order which puts "$type" first.
func toDocument(n *graph.Node) (any, error) {
	if n.Type != "" && n.Kind != graph.KindNull {
		if n.Kind == graph.KindObject {
			obj, err := toObject(n.Fields)
			if err != nil {
				return nil, err
			}
			for _, reserved := range []string{typeKey, valueKey} {
				if _, clash := obj[reserved]; clash {
					return nil, fmt.Errorf("field %s of %s collides with the type member", reserved, n.Type)
				}
			}
			obj[typeKey] = n.Type
			return obj, nil
		}
		inner := *n
		inner.Type = ""
		value, err := toDocument(&inner)
		if err != nil {
			return nil, err
		}
		return map[string]any{typeKey: n.Type, valueKey: value}, nil
	}

	switch n.Kind {
	case graph.KindNull:
		return nil, nil
	case graph.KindScalar:
		switch n.Scalar {
		case graph.ScalarNumber:
			return json.Number(n.Text), nil
		case graph.ScalarBool:
			return n.Text == "true", nil
		default:
			if !utf8.ValidString(n.Text) {
				return nil, fmt.Errorf("string %q is not valid utf-8", n.Text)
			}
			return n.Text, nil
		}
	case graph.KindArray:
		items := make([]any, len(n.Items))
		for i, item := range n.Items {
			x, err := toDocument(item)
			if err != nil {
				return nil, err
			}
			items[i] = x
		}
		return items, nil
	default:
		return toObject(n.Fields)
	}
}

func toObject(fields []graph.Field) (map[string]any, error) {
	obj := make(map[string]any, len(fields)+1)
	for _, f := range fields {
		if !utf8.ValidString(f.Name) {
			return nil, fmt.Errorf("member name %q is not valid utf-8", f.Name)
		}
		x, err := toDocument(f.Node)
		if err != nil {
			return nil, err
		}
		obj[f.Name] = x
	}
	return obj, nil
}

// toNode converts the generic decoding result into a value graph
func toNode(raw any) (*graph.Node, error) {
	switch x := raw.(type) {
	case nil:
		return graph.Null(), nil
	case bool:
		text := "false"
		if x {
			text = "true"
		}
		return &graph.Node{Kind: graph.KindScalar, Scalar: graph.ScalarBool, Text: text}, nil
	case json.Number:
		return &graph.Node{Kind: graph.KindScalar, Scalar: graph.ScalarNumber, Text: x.String()}, nil
	case string:
		return graph.StringNode(x), nil
	case []any:
		n := &graph.Node{Kind: graph.KindArray, Items: make([]*graph.Node, len(x))}
		for i, item := range x {
			child, err := toNode(item)
			if err != nil {
				return nil, err
			}
			n.Items[i] = child
		}
		return n, nil
	case map[string]any:
		return objectNode(x)
	default:
		return nil, fmt.Errorf("unexpected json value of type %T", raw)
	}
}

func objectNode(m map[string]any) (*graph.Node, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// "$type" stays an ordinary member here, only interface typed slots interpret it
	n := &graph.Node{Kind: graph.KindObject, Fields: make([]graph.Field, 0, len(keys))}
	for _, k := range keys {
		child, err := toNode(m[k])
		if err != nil {
			return nil, err
		}
		n.Fields = append(n.Fields, graph.Field{Name: k, Node: child})
	}
	return n, nil
}
