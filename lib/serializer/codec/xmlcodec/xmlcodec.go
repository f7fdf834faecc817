package xmlcodec

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/ValentinKolb/dPersist/lib/cacheerr"
	"github.com/ValentinKolb/dPersist/lib/serializer/codec"
	"github.com/ValentinKolb/dPersist/lib/serializer/codec/internal/graph"
)

const (
	attrType = "type"
	attrKey  = "key"
	attrNil  = "nil"

	itemElement  = "item"
	entryElement = "entry"
	anonymousTag = "Value"
)

// New creates the tagged markup codec. Only the types in reg (and predeclared types) may
// appear in interface typed positions, anything else fails with a configuration error.
func New(reg *codec.Registry) codec.Codec {
	if reg == nil {
		reg, _ = codec.NewRegistry()
	}
	return &xmlCodecImpl{reg: reg}
}

// xmlCodecImpl implements the codec.Codec interface using compact xml
type xmlCodecImpl struct {
	reg *codec.Registry
}

func (c *xmlCodecImpl) policy() graph.Policy {
	return graph.Policy{
		TagKey:       "xml",
		OmitDefaults: false,
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
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.Codec)
// --------------------------------------------------------------------------

func (c *xmlCodecImpl) Name() string {
	return "xml"
}

func (c *xmlCodecImpl) Encode(w io.Writer, ptr any) error {
	v, err := target(ptr)
	if err != nil {
		return err
	}
	n, err := graph.Encode(v, c.policy())
	if err != nil {
		return cacheerr.Wrap(cacheerr.ErrCUnknown, "encode xml", err)
	}

	enc := xml.NewEncoder(w)
	header := xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="UTF-8"`)}
	if err := enc.EncodeToken(header); err != nil {
		return cacheerr.Wrap(cacheerr.ErrCUnknown, "write xml", err)
	}
	if err := writeElement(enc, rootName(v.Type()), nil, n); err != nil {
		return cacheerr.Wrap(cacheerr.ErrCUnknown, "write xml", err)
	}
	if err := enc.Close(); err != nil {
		return cacheerr.Wrap(cacheerr.ErrCUnknown, "write xml", err)
	}
	return nil
}

func (c *xmlCodecImpl) Decode(r io.Reader, ptr any) error {
	v, err := target(ptr)
	if err != nil {
		return err
	}
	n, err := parse(xml.NewDecoder(r))
	if err != nil {
		return cacheerr.Wrap(cacheerr.ErrCUnknown, "read xml", err)
	}
	if err := graph.Build(n, v, c.policy()); err != nil {
		return cacheerr.Wrap(cacheerr.ErrCUnknown, "decode xml", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Writing
// --------------------------------------------------------------------------

func writeElement(enc *xml.Encoder, name string, attrs []xml.Attr, n *graph.Node) error {
	start := xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs}
	if n.Kind == graph.KindNull {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: attrNil}, Value: "true"})
	} else if n.Type != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: attrType}, Value: n.Type})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	switch n.Kind {
	case graph.KindScalar:
		if err := checkChars(n.Text); err != nil {
			return err
		}
		if n.Text != "" {
			if err := enc.EncodeToken(xml.CharData(n.Text)); err != nil {
				return err
			}
		}
	case graph.KindObject:
		for _, f := range n.Fields {
			if err := writeElement(enc, f.Name, nil, f.Node); err != nil {
				return err
			}
		}
	case graph.KindArray:
		for _, item := range n.Items {
			if err := writeElement(enc, itemElement, nil, item); err != nil {
				return err
			}
		}
	case graph.KindMap:
		for _, f := range n.Fields {
			if err := checkChars(f.Name); err != nil {
				return err
			}
			key := []xml.Attr{{Name: xml.Name{Local: attrKey}, Value: f.Name}}
			if err := writeElement(enc, entryElement, key, f.Node); err != nil {
				return err
			}
		}
	}
	return enc.EncodeToken(start.End())
}

// checkChars fails for text that xml 1.0 cannot carry. The encoder would replace such characters
// with U+FFFD and the value would not read back.
func checkChars(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("text %q is not valid utf-8", s)
	}
	for _, r := range s {
		if !isXMLChar(r) {
			return fmt.Errorf("text %q contains character %U which xml cannot represent", s, r)
		}
	}
	return nil
}

// isXMLChar implements the Char production of xml 1.0
func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}

// rootName derives the root element name from the declared value type
func rootName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name, _, _ := strings.Cut(t.Name(), "[")
	if name == "" {
		return anonymousTag
	}
	return name
}

// --------------------------------------------------------------------------
// Reading
// --------------------------------------------------------------------------

// parse reads the first element of the document. The root element name is not checked.
func parse(dec *xml.Decoder) (*graph.Node, error) {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("document has no root element")
		}
		if err != nil {
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return parseElement(dec, start)
		}
	}
}

func parseElement(dec *xml.Decoder, start xml.StartElement) (*graph.Node, error) {
	var (
		text     strings.Builder
		fields   []graph.Field
		isNil    bool
		typeName string
	)
	for _, a := range start.Attr {
		switch a.Name.Local {
		case attrNil:
			isNil = a.Value == "true"
		case attrType:
			typeName = a.Value
		}
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("unexpected end of document in element %s", start.Name.Local)
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := parseElement(dec, t)
			if err != nil {
				return nil, err
			}
			name := t.Name.Local
			for _, a := range t.Attr {
				if a.Name.Local == attrKey {
					name = a.Value
				}
			}
			fields = append(fields, graph.Field{Name: name, Node: child})
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			switch {
			case isNil:
				return graph.Null(), nil
			case len(fields) > 0:
				return &graph.Node{Kind: graph.KindObject, Type: typeName, Fields: fields}, nil
			default:
				n := graph.StringNode(text.String())
				n.Type = typeName
				return n, nil
			}
		}
	}
}

// target returns the settable value ptr points to
func target(ptr any) (reflect.Value, error) {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, cacheerr.NewWithDetail(cacheerr.ErrCConfig, fmt.Sprintf("xml codec needs a non-nil pointer, got %T", ptr))
	}
	return rv.Elem(), nil
}
