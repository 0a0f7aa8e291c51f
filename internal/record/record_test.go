package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_KeepsIntegersExact(t *testing.T) {
	r, err := Decode([]byte(`{"id": 9007199254740993, "score": 0.5, "ok": true, "note": null}`))
	require.NoError(t, err)

	assert.Equal(t, Int(9007199254740993), r.Get("id"))
	assert.Equal(t, Float(0.5), r.Get("score"))
	assert.Equal(t, Bool(true), r.Get("ok"))
	assert.Equal(t, Null{}, r.Get("note"))
}

func TestDecode_RejectsNonObject(t *testing.T) {
	_, err := Decode([]byte(`[1, 2]`))
	assert.Error(t, err)
}

func TestLookup_DottedPaths(t *testing.T) {
	r, err := Decode([]byte(`{
		"id": 7,
		"data": {"image": "s3://bucket/7.png"},
		"annotators": [{"email": "a@example.com"}, {"email": "b@example.com"}]
	}`))
	require.NoError(t, err)

	tests := []struct {
		path  string
		want  Value
		found bool
	}{
		{"id", Int(7), true},
		{"data.image", String("s3://bucket/7.png"), true},
		{"annotators.1.email", String("b@example.com"), true},
		{"annotators.5.email", Empty{}, false},
		{"annotators.x", Empty{}, false},
		{"data.missing", Empty{}, false},
		{"id.nested", Empty{}, false},
		{"completed_at", Empty{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := r.Lookup(tt.path)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookup_NullIsNotEmpty(t *testing.T) {
	r := New(Object{"completed_at": Null{}})

	v, ok := r.Lookup("completed_at")
	assert.True(t, ok)
	assert.False(t, IsEmpty(v))

	v, ok = r.Lookup("updated_at")
	assert.False(t, ok)
	assert.True(t, IsEmpty(v))
}

func TestID_NormalizesNumericAndStringIDs(t *testing.T) {
	assert.Equal(t, "7", New(Object{"id": Int(7)}).ID())
	assert.Equal(t, "7", New(Object{"id": String("7")}).ID())
	assert.Equal(t, "", New(Object{"title": String("x")}).ID())
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	base := New(Object{"id": Int(1), "title": String("a")})
	extra := New(Object{"id": Int(1), "task_number": Int(12)})

	merged := base.Merge(extra)

	assert.Equal(t, Int(12), merged.Get("task_number"))
	assert.Equal(t, String("a"), merged.Get("title"))
	assert.True(t, IsEmpty(base.Get("task_number")), "base must stay untouched")
}

func TestPick_KeepsIDAndTopLevelFields(t *testing.T) {
	r := New(Object{
		"id":    Int(3),
		"title": String("t"),
		"data":  Object{"text": String("hello")},
		"color": String("red"),
	})

	picked := r.Pick([]string{"data.text", "title"})

	assert.ElementsMatch(t, []string{"data", "id", "title"}, picked.Fields().SortedKeys())
}

func TestMarshalCanonical_Deterministic(t *testing.T) {
	obj := Object{
		"b":    Int(2),
		"a":    String("<x & y>"),
		"f":    Float(1.25),
		"list": Array{Bool(true), Null{}},
	}

	first, err := MarshalCanonical(obj)
	require.NoError(t, err)
	second, err := MarshalCanonical(obj)
	require.NoError(t, err)

	assert.Equal(t, `{"a":"<x & y>","b":2,"f":1.25,"list":[true,null]}`, string(first))
	assert.Equal(t, first, second)
}

func TestMarshalCanonical_NormalizesToNFC(t *testing.T) {
	// "e" followed by a combining acute accent becomes the precomposed form
	got, err := MarshalCanonical(String("e\u0301"))
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestFromAny_WholeFloatsBecomeInts(t *testing.T) {
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"id": 42, "ratio": 0.75}`), &raw))

	r, err := FromMap(raw)
	require.NoError(t, err)
	assert.Equal(t, Int(42), r.Get("id"))
	assert.Equal(t, Float(0.75), r.Get("ratio"))
}

func TestText_RawDisplay(t *testing.T) {
	assert.Equal(t, "", Text(Empty{}))
	assert.Equal(t, "", Text(Null{}))
	assert.Equal(t, "42", Text(Int(42)))
	assert.Equal(t, "0.5", Text(Float(0.5)))
	assert.Equal(t, "a, b", Text(Array{String("a"), String("b")}))
	assert.Equal(t, `{"k":1}`, Text(Object{"k": Int(1)}))
}

func TestNativeType(t *testing.T) {
	assert.Equal(t, "string", NativeType(String("x")))
	assert.Equal(t, "number", NativeType(Int(1)))
	assert.Equal(t, "number", NativeType(Float(1.5)))
	assert.Equal(t, "boolean", NativeType(Bool(false)))
	assert.Equal(t, "list", NativeType(Array{}))
	assert.Equal(t, "object", NativeType(Object{}))
	assert.Equal(t, "null", NativeType(Null{}))
	assert.Equal(t, "", NativeType(Empty{}))
}
