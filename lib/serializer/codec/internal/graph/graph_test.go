package graph

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shape interface{ area() float64 }

type circle struct {
	R float64 `json:"r"`
}

func (c circle) area() float64 { return 3 * c.R * c.R }

type sample struct {
	Name    string         `json:"name"`
	Count   int            `json:"count"`
	Skip    string         `json:"-"`
	Opt     *string        `json:"opt"`
	Tags    []string       `json:"tags"`
	Labels  map[string]int `json:"labels"`
	Shape   shape          `json:"shape"`
	When    time.Time      `json:"when"`
	Raw     []byte         `json:"raw"`
	ByID    map[int]string `json:"byId"`
	Nested  *sample        `json:"nested"`
	private int
}

func testPolicy(omit bool) Policy {
	types := map[string]reflect.Type{"circle": reflect.TypeOf(circle{})}
	return Policy{
		TagKey:       "json",
		OmitDefaults: omit,
		TypeName: func(t reflect.Type) (string, error) {
			if t == reflect.TypeOf(circle{}) {
				return "circle", nil
			}
			return t.String(), nil
		},
		ResolveType: func(name string) (reflect.Type, error) {
			if t, ok := types[name]; ok {
				return t, nil
			}
			return nil, fmt.Errorf("unknown type %q", name)
		},
	}
}

func fieldNames(n *Node) []string {
	names := make([]string, len(n.Fields))
	for i, f := range n.Fields {
		names[i] = f.Name
	}
	return names
}

func TestEncodeOmission(t *testing.T) {
	v := sample{Name: "x", Skip: "ignored", private: 3}

	n, err := Encode(reflect.ValueOf(&v).Elem(), testPolicy(true))
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, fieldNames(n))

	n, err = Encode(reflect.ValueOf(&v).Elem(), testPolicy(false))
	require.NoError(t, err)
	// nil references are dropped even without default omission
	assert.Equal(t, []string{"name", "count", "when"}, fieldNames(n))
}

func TestEncodeSortsMapKeys(t *testing.T) {
	v := map[string]int{"b": 2, "c": 3, "a": 1}
	n, err := Encode(reflect.ValueOf(v), testPolicy(true))
	require.NoError(t, err)
	assert.Equal(t, KindMap, n.Kind)
	assert.Equal(t, []string{"a", "b", "c"}, fieldNames(n))
}

func TestEncodeRejects(t *testing.T) {
	t.Run("cycle", func(t *testing.T) {
		v := &sample{Name: "loop"}
		v.Nested = v
		_, err := Encode(reflect.ValueOf(v), testPolicy(true))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "self referencing loop")
	})

	t.Run("shared reference is not a cycle", func(t *testing.T) {
		shared := "s"
		v := []*string{&shared, &shared}
		n, err := Encode(reflect.ValueOf(v), testPolicy(true))
		require.NoError(t, err)
		assert.Len(t, n.Items, 2)
	})

	t.Run("unsupported", func(t *testing.T) {
		for _, v := range []any{make(chan int), func() {}, complex(1, 2)} {
			_, err := Encode(reflect.ValueOf(v), testPolicy(true))
			assert.Error(t, err)
		}
	})
}

func TestBuildRoundTrip(t *testing.T) {
	opt := "optional"
	when := time.Date(2024, 5, 6, 7, 8, 9, 10, time.FixedZone("X", 2*3600))
	in := sample{
		Name:   "full",
		Count:  42,
		Opt:    &opt,
		Tags:   []string{"a", "b"},
		Labels: map[string]int{"x": 1},
		Shape:  circle{R: 2},
		When:   when,
		Raw:    []byte{0, 1, 2},
		ByID:   map[int]string{7: "seven"},
		Nested: &sample{Name: "child"},
	}

	n, err := Encode(reflect.ValueOf(&in).Elem(), testPolicy(true))
	require.NoError(t, err)

	var out sample
	require.NoError(t, Build(n, reflect.ValueOf(&out).Elem(), testPolicy(true)))

	assert.True(t, in.When.Equal(out.When))
	_, offset := out.When.Zone()
	assert.Equal(t, 2*3600, offset)
	out.When, in.When = time.Time{}, time.Time{}
	assert.Equal(t, in, out)
}

func TestBuildIgnoresUnknownFields(t *testing.T) {
	n := &Node{Kind: KindObject, Fields: []Field{
		{Name: "name", Node: StringNode("n")},
		{Name: "doesNotExist", Node: StringNode("?")},
	}}
	var out sample
	require.NoError(t, Build(n, reflect.ValueOf(&out).Elem(), testPolicy(true)))
	assert.Equal(t, "n", out.Name)
}

func TestBuildInterface(t *testing.T) {
	t.Run("unknown type name", func(t *testing.T) {
		n := &Node{Kind: KindObject, Type: "square"}
		var out shape
		assert.Error(t, Build(n, reflect.ValueOf(&out).Elem(), testPolicy(true)))
	})

	t.Run("missing type name", func(t *testing.T) {
		n := &Node{Kind: KindObject}
		var out shape
		assert.Error(t, Build(n, reflect.ValueOf(&out).Elem(), testPolicy(true)))
	})

	t.Run("empty interface gets natural values", func(t *testing.T) {
		n := &Node{Kind: KindArray, Items: []*Node{
			StringNode("a"),
			{Kind: KindScalar, Scalar: ScalarNumber, Text: "1.5"},
			{Kind: KindScalar, Scalar: ScalarBool, Text: "true"},
			Null(),
		}}
		var out any
		require.NoError(t, Build(n, reflect.ValueOf(&out).Elem(), testPolicy(true)))
		assert.Equal(t, []any{"a", 1.5, true, nil}, out)
	})
}

func TestBuildEmptyScalarAsContainer(t *testing.T) {
	var out struct {
		Tags   []string
		Labels map[string]int
		Inner  struct{ A int }
	}
	n := &Node{Kind: KindObject, Fields: []Field{
		{Name: "Tags", Node: StringNode("")},
		{Name: "Labels", Node: StringNode("")},
		{Name: "Inner", Node: StringNode("")},
	}}
	require.NoError(t, Build(n, reflect.ValueOf(&out).Elem(), Policy{TagKey: "xml"}))
	assert.NotNil(t, out.Tags)
	assert.Empty(t, out.Tags)
	assert.NotNil(t, out.Labels)
}

func TestBuildTypeMismatch(t *testing.T) {
	var out struct{ Count int }
	n := &Node{Kind: KindObject, Fields: []Field{{Name: "Count", Node: StringNode("many")}}}
	assert.Error(t, Build(n, reflect.ValueOf(&out).Elem(), Policy{TagKey: "json"}))
}

func TestEncodeSkipsTypedNilInterfaceField(t *testing.T) {
	var out struct {
		Shape any `json:"shape"`
		Name  string
	}
	out.Shape = (*circle)(nil)
	out.Name = "n"

	n, err := Encode(reflect.ValueOf(&out).Elem(), testPolicy(false))
	require.NoError(t, err)
	assert.Equal(t, []string{"Name"}, fieldNames(n))

	out.Shape = map[string]int(nil)
	n, err = Encode(reflect.ValueOf(&out).Elem(), testPolicy(false))
	require.NoError(t, err)
	assert.Equal(t, []string{"Name"}, fieldNames(n))
}

func TestBuildTypeMember(t *testing.T) {
	p := testPolicy(true)
	p.TypeMember, p.ValueMember = "$type", "$value"

	t.Run("inlined object", func(t *testing.T) {
		n := &Node{Kind: KindObject, Fields: []Field{
			{Name: "$type", Node: StringNode("circle")},
			{Name: "r", Node: &Node{Kind: KindScalar, Scalar: ScalarNumber, Text: "2"}},
		}}
		var out shape
		require.NoError(t, Build(n, reflect.ValueOf(&out).Elem(), p))
		assert.Equal(t, circle{R: 2}, out)
	})

	t.Run("wrapped value", func(t *testing.T) {
		n := &Node{Kind: KindObject, Fields: []Field{
			{Name: "$type", Node: StringNode("circle")},
			{Name: "$value", Node: &Node{Kind: KindObject, Fields: []Field{
				{Name: "r", Node: &Node{Kind: KindScalar, Scalar: ScalarNumber, Text: "3"}},
			}}},
		}}
		var out shape
		require.NoError(t, Build(n, reflect.ValueOf(&out).Elem(), p))
		assert.Equal(t, circle{R: 3}, out)
	})

	t.Run("ordinary key outside interface slots", func(t *testing.T) {
		n := &Node{Kind: KindObject, Fields: []Field{
			{Name: "$type", Node: StringNode("circle")},
			{Name: "$value", Node: StringNode("v")},
		}}
		var out map[string]string
		require.NoError(t, Build(n, reflect.ValueOf(&out).Elem(), p))
		assert.Equal(t, map[string]string{"$type": "circle", "$value": "v"}, out)
	})

	t.Run("type member must be a string", func(t *testing.T) {
		n := &Node{Kind: KindObject, Fields: []Field{
			{Name: "$type", Node: &Node{Kind: KindScalar, Scalar: ScalarNumber, Text: "1"}},
		}}
		var out shape
		assert.Error(t, Build(n, reflect.ValueOf(&out).Elem(), p))
	})
}
