package graph

import (
	"encoding"
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// maxDepth bounds the nesting of a value graph, deeper graphs are most likely cyclic through slices
const maxDepth = 10000

// Encode translates v into a value graph. v is typically reflect.ValueOf(ptr).Elem() so that an interface
// typed root keeps its declared type.
//
// Pointers and maps that re-enter themselves are rejected. Acyclic shared references are written by value.
func Encode(v reflect.Value, p Policy) (*Node, error) {
	e := &encoder{policy: p, visiting: make(map[visit]struct{})}
	return e.encode(v, 0)
}

type encoder struct {
	policy   Policy
	visiting map[visit]struct{}
}

// visit identifies a reference on the current path. The type is part of the key because a struct
// and its first field share an address.
type visit struct {
	ptr uintptr
	typ reflect.Type
}

func (e *encoder) encode(v reflect.Value, depth int) (*Node, error) {
	if !v.IsValid() {
		return Null(), nil
	}
	if depth > maxDepth {
		return nil, fmt.Errorf("maximum nesting depth exceeded for type %s", v.Type())
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return Null(), nil
		}
		elem := v.Elem()
		name, err := e.policy.TypeName(elem.Type())
		if err != nil {
			return nil, err
		}
		n, err := e.encode(elem, depth+1)
		if err != nil {
			return nil, err
		}
		n.Type = name
		return n, nil
	case reflect.Pointer:
		if v.IsNil() {
			return Null(), nil
		}
	}

	if n, ok, err := e.encodeText(v); ok || err != nil {
		return n, err
	}

	switch v.Kind() {
	case reflect.Pointer:
		key := visit{ptr: v.Pointer(), typ: v.Type()}
		if _, seen := e.visiting[key]; seen {
			return nil, fmt.Errorf("self referencing loop detected for type %s", v.Type())
		}
		e.visiting[key] = struct{}{}
		defer delete(e.visiting, key)
		return e.encode(v.Elem(), depth+1)

	case reflect.Bool:
		return &Node{Kind: KindScalar, Scalar: ScalarBool, Text: strconv.FormatBool(v.Bool())}, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &Node{Kind: KindScalar, Scalar: ScalarNumber, Text: strconv.FormatInt(v.Int(), 10)}, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return &Node{Kind: KindScalar, Scalar: ScalarNumber, Text: strconv.FormatUint(v.Uint(), 10)}, nil

	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("unsupported float value %v", f)
		}
		return &Node{Kind: KindScalar, Scalar: ScalarNumber, Text: strconv.FormatFloat(f, 'g', -1, v.Type().Bits())}, nil

	case reflect.String:
		return StringNode(v.String()), nil

	case reflect.Slice:
		if v.IsNil() {
			return Null(), nil
		}
		if isBytes(v.Type()) {
			return StringNode(base64.StdEncoding.EncodeToString(v.Bytes())), nil
		}
		return e.encodeItems(v, depth)

	case reflect.Array:
		return e.encodeItems(v, depth)

	case reflect.Map:
		if v.IsNil() {
			return Null(), nil
		}
		key := visit{ptr: v.Pointer(), typ: v.Type()}
		if _, seen := e.visiting[key]; seen {
			return nil, fmt.Errorf("self referencing loop detected for type %s", v.Type())
		}
		e.visiting[key] = struct{}{}
		defer delete(e.visiting, key)
		return e.encodeMap(v, depth)

	case reflect.Struct:
		return e.encodeStruct(v, depth)

	default:
		return nil, fmt.Errorf("unsupported type %s", v.Type())
	}
}

// encodeText handles types that render themselves as text (time.Time, net.IP, ...)
func (e *encoder) encodeText(v reflect.Value) (*Node, bool, error) {
	var m encoding.TextMarshaler
	switch {
	case v.Type().Implements(textMarshalerType):
		m = v.Interface().(encoding.TextMarshaler)
	case v.CanAddr() && reflect.PointerTo(v.Type()).Implements(textMarshalerType):
		m = v.Addr().Interface().(encoding.TextMarshaler)
	default:
		return nil, false, nil
	}
	b, err := m.MarshalText()
	if err != nil {
		return nil, true, fmt.Errorf("marshal %s as text: %w", v.Type(), err)
	}
	return StringNode(string(b)), true, nil
}

func (e *encoder) encodeItems(v reflect.Value, depth int) (*Node, error) {
	n := &Node{Kind: KindArray, Items: make([]*Node, v.Len())}
	for i := 0; i < v.Len(); i++ {
		item, err := e.encode(v.Index(i), depth+1)
		if err != nil {
			return nil, err
		}
		n.Items[i] = item
	}
	return n, nil
}

func (e *encoder) encodeMap(v reflect.Value, depth int) (*Node, error) {
	n := &Node{Kind: KindMap, Fields: make([]Field, 0, v.Len())}
	iter := v.MapRange()
	for iter.Next() {
		key, err := keyText(iter.Key())
		if err != nil {
			return nil, err
		}
		val, err := e.encode(iter.Value(), depth+1)
		if err != nil {
			return nil, err
		}
		n.Fields = append(n.Fields, Field{Name: key, Node: val})
	}
	slices.SortFunc(n.Fields, func(a, b Field) int { return strings.Compare(a.Name, b.Name) })
	return n, nil
}

func (e *encoder) encodeStruct(v reflect.Value, depth int) (*Node, error) {
	fields := fieldsOf(v.Type(), e.policy.TagKey)
	n := &Node{Kind: KindObject, Fields: make([]Field, 0, len(fields))}
	for _, f := range fields {
		fv := v.Field(f.index)
		// an interface holding a typed nil is null as well
		if isNil(fv) {
			continue
		}
		if e.policy.OmitDefaults && fv.IsZero() {
			continue
		}
		child, err := e.encode(fv, depth+1)
		if err != nil {
			return nil, err
		}
		n.Fields = append(n.Fields, Field{Name: f.name, Node: child})
	}
	return n, nil
}

// keyText renders a map key
func keyText(k reflect.Value) (string, error) {
	if k.Kind() == reflect.String {
		return k.String(), nil
	}
	if k.Type().Implements(textMarshalerType) {
		if k.Kind() == reflect.Pointer && k.IsNil() {
			return "", fmt.Errorf("nil map key of type %s", k.Type())
		}
		b, err := k.Interface().(encoding.TextMarshaler).MarshalText()
		return string(b), err
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	case reflect.Bool:
		return strconv.FormatBool(k.Bool()), nil
	default:
		return "", fmt.Errorf("unsupported map key type %s", k.Type())
	}
}
