package graph

import (
	"encoding"
	"encoding/base64"
	"fmt"
	"reflect"
	"slices"
	"strconv"
)

// Build stores the value described by n into v, which must be settable.
// Fields of n without a matching struct field are ignored, struct fields missing in n keep their zero value.
func Build(n *Node, v reflect.Value, p Policy) error {
	b := &builder{policy: p}
	return b.assign(n, v)
}

type builder struct {
	policy Policy
}

func (b *builder) assign(n *Node, v reflect.Value) error {
	t := v.Type()
	if n == nil || n.Kind == KindNull {
		v.Set(reflect.Zero(t))
		return nil
	}

	switch t.Kind() {
	case reflect.Interface:
		return b.assignInterface(n, v)
	case reflect.Pointer:
		if v.IsNil() {
			v.Set(reflect.New(t.Elem()))
		}
		return b.assign(n, v.Elem())
	}

	if v.CanAddr() && reflect.PointerTo(t).Implements(textUnmarshalerType) {
		if n.Kind != KindScalar {
			return fmt.Errorf("cannot decode %s into %s", n.Kind, t)
		}
		if err := v.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(n.Text)); err != nil {
			return fmt.Errorf("unmarshal %s from text: %w", t, err)
		}
		return nil
	}

	switch t.Kind() {
	case reflect.Bool:
		text, err := scalarText(n, t)
		if err != nil {
			return err
		}
		x, err := strconv.ParseBool(text)
		if err != nil {
			return fmt.Errorf("decode %s: %w", t, err)
		}
		v.SetBool(x)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		text, err := scalarText(n, t)
		if err != nil {
			return err
		}
		x, err := strconv.ParseInt(text, 10, t.Bits())
		if err != nil {
			return fmt.Errorf("decode %s: %w", t, err)
		}
		v.SetInt(x)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		text, err := scalarText(n, t)
		if err != nil {
			return err
		}
		x, err := strconv.ParseUint(text, 10, t.Bits())
		if err != nil {
			return fmt.Errorf("decode %s: %w", t, err)
		}
		v.SetUint(x)

	case reflect.Float32, reflect.Float64:
		text, err := scalarText(n, t)
		if err != nil {
			return err
		}
		x, err := strconv.ParseFloat(text, t.Bits())
		if err != nil {
			return fmt.Errorf("decode %s: %w", t, err)
		}
		v.SetFloat(x)

	case reflect.String:
		text, err := scalarText(n, t)
		if err != nil {
			return err
		}
		v.SetString(text)

	case reflect.Slice:
		if isBytes(t) {
			text, err := scalarText(n, t)
			if err != nil {
				return err
			}
			raw, err := base64.StdEncoding.DecodeString(text)
			if err != nil {
				return fmt.Errorf("decode %s: %w", t, err)
			}
			v.SetBytes(raw)
			return nil
		}
		items, ok := n.children()
		if !ok {
			return fmt.Errorf("cannot decode %s into %s", n.Kind, t)
		}
		s := reflect.MakeSlice(t, len(items), len(items))
		for i, item := range items {
			if err := b.assign(item, s.Index(i)); err != nil {
				return err
			}
		}
		v.Set(s)

	case reflect.Array:
		items, ok := n.children()
		if !ok {
			return fmt.Errorf("cannot decode %s into %s", n.Kind, t)
		}
		v.Set(reflect.Zero(t))
		for i := 0; i < len(items) && i < t.Len(); i++ {
			if err := b.assign(items[i], v.Index(i)); err != nil {
				return err
			}
		}

	case reflect.Map:
		entries, ok := n.entries()
		if !ok {
			return fmt.Errorf("cannot decode %s into %s", n.Kind, t)
		}
		m := reflect.MakeMapWithSize(t, len(entries))
		for _, f := range entries {
			key := reflect.New(t.Key()).Elem()
			if err := parseKey(f.Name, key); err != nil {
				return err
			}
			val := reflect.New(t.Elem()).Elem()
			if err := b.assign(f.Node, val); err != nil {
				return err
			}
			m.SetMapIndex(key, val)
		}
		v.Set(m)

	case reflect.Struct:
		entries, ok := n.entries()
		if !ok {
			return fmt.Errorf("cannot decode %s into %s", n.Kind, t)
		}
		byName := make(map[string]int)
		for _, f := range fieldsOf(t, b.policy.TagKey) {
			byName[f.name] = f.index
		}
		for _, f := range entries {
			idx, known := byName[f.Name]
			if !known {
				continue
			}
			if err := b.assign(f.Node, v.Field(idx)); err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
		}

	default:
		return fmt.Errorf("unsupported type %s", t)
	}
	return nil
}

// assignInterface instantiates the concrete type named by n.Type. Without a type name only the empty
// interface can be filled (with generic maps, slices and scalars).
func (b *builder) assignInterface(n *Node, v reflect.Value) error {
	t := v.Type()
	if n.Type == "" {
		tagged, err := b.unwrapType(n)
		if err != nil {
			return err
		}
		n = tagged
	}
	if n.Type == "" {
		if t.NumMethod() != 0 {
			return fmt.Errorf("missing concrete type name for interface %s", t)
		}
		nat, err := natural(n)
		if err != nil {
			return err
		}
		if nat == nil {
			v.Set(reflect.Zero(t))
		} else {
			v.Set(reflect.ValueOf(nat))
		}
		return nil
	}

	concrete, err := b.policy.ResolveType(n.Type)
	if err != nil {
		return err
	}
	if !concrete.AssignableTo(t) {
		return fmt.Errorf("type %s does not implement %s", concrete, t)
	}
	cv := reflect.New(concrete).Elem()
	inner := *n
	inner.Type = ""
	if err := b.assign(&inner, cv); err != nil {
		return err
	}
	v.Set(cv)
	return nil
}

// unwrapType moves the type member of an object node into Node.Type. A node that only holds the
// type and value members is replaced by the value. Nodes without a type member are returned unchanged.
func (b *builder) unwrapType(n *Node) (*Node, error) {
	if b.policy.TypeMember == "" || n.Kind != KindObject {
		return n, nil
	}
	idx := slices.IndexFunc(n.Fields, func(f Field) bool { return f.Name == b.policy.TypeMember })
	if idx < 0 {
		return n, nil
	}
	tag := n.Fields[idx].Node
	if tag.Kind != KindScalar || tag.Scalar != ScalarString || tag.Text == "" {
		return nil, fmt.Errorf("%s member must be a non-empty string", b.policy.TypeMember)
	}
	rest := slices.Delete(slices.Clone(n.Fields), idx, idx+1)
	if len(rest) == 1 && rest[0].Name == b.policy.ValueMember {
		inner := *rest[0].Node
		inner.Type = tag.Text
		return &inner, nil
	}
	return &Node{Kind: KindObject, Type: tag.Text, Fields: rest}, nil
}

// natural converts an untyped node into plain Go values
func natural(n *Node) (any, error) {
	switch n.Kind {
	case KindNull:
		return nil, nil
	case KindScalar:
		switch n.Scalar {
		case ScalarBool:
			return strconv.ParseBool(n.Text)
		case ScalarNumber:
			return strconv.ParseFloat(n.Text, 64)
		default:
			return n.Text, nil
		}
	case KindArray:
		out := make([]any, len(n.Items))
		for i, item := range n.Items {
			x, err := natural(item)
			if err != nil {
				return nil, err
			}
			out[i] = x
		}
		return out, nil
	default:
		out := make(map[string]any, len(n.Fields))
		for _, f := range n.Fields {
			x, err := natural(f.Node)
			if err != nil {
				return nil, err
			}
			out[f.Name] = x
		}
		return out, nil
	}
}

func scalarText(n *Node, t reflect.Type) (string, error) {
	if n.Kind != KindScalar {
		return "", fmt.Errorf("cannot decode %s into %s", n.Kind, t)
	}
	return n.Text, nil
}

// parseKey is the inverse of keyText
func parseKey(text string, k reflect.Value) error {
	t := k.Type()
	if t.Kind() == reflect.String {
		k.SetString(text)
		return nil
	}
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return k.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(text))
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		x, err := strconv.ParseInt(text, 10, t.Bits())
		if err != nil {
			return fmt.Errorf("decode map key %s: %w", t, err)
		}
		k.SetInt(x)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		x, err := strconv.ParseUint(text, 10, t.Bits())
		if err != nil {
			return fmt.Errorf("decode map key %s: %w", t, err)
		}
		k.SetUint(x)
	case reflect.Bool:
		x, err := strconv.ParseBool(text)
		if err != nil {
			return fmt.Errorf("decode map key %s: %w", t, err)
		}
		k.SetBool(x)
	default:
		return fmt.Errorf("unsupported map key type %s", t)
	}
	return nil
}
