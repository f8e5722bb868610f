package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Simple(t *testing.T) {
	s, err := Parse("numpy_sin(Tensor x) -> Tensor")
	require.NoError(t, err)

	assert.Equal(t, "numpy_sin", s.Name)
	assert.Empty(t, s.Overload)
	require.Len(t, s.Args, 1)
	assert.Equal(t, "x", s.Args[0].Name)
	assert.Equal(t, TypeTensor, s.Args[0].Type)
	assert.Nil(t, s.Args[0].Alias)
	require.Len(t, s.Returns, 1)
	assert.Equal(t, TypeTensor, s.Returns[0].Type)
	assert.Equal(t, KindFunctional, s.Kind())
}

func TestParse_Overload(t *testing.T) {
	s, err := Parse("add.out(Tensor x, Tensor y) -> Tensor")
	require.NoError(t, err)
	assert.Equal(t, "add", s.Name)
	assert.Equal(t, "out", s.Overload)
}

func TestParse_MixedTypes(t *testing.T) {
	s, err := Parse("scale(Tensor x, float alpha, int n, bool flag) -> Tensor")
	require.NoError(t, err)

	require.Len(t, s.Args, 4)
	assert.Equal(t, TypeFloat, s.Args[1].Type)
	assert.Equal(t, TypeInt, s.Args[2].Type)
	assert.Equal(t, TypeBool, s.Args[3].Type)
}

func TestParse_KwargOnlyAndDefaults(t *testing.T) {
	s, err := Parse("f(Tensor x, *, int k=1, bool flag=true) -> Tensor")
	require.NoError(t, err)

	require.Len(t, s.Args, 3)
	assert.False(t, s.Args[0].KwargOnly)
	assert.True(t, s.Args[1].KwargOnly)
	assert.Equal(t, "1", s.Args[1].Default)
	assert.True(t, s.Args[2].KwargOnly)
	assert.Equal(t, "true", s.Args[2].Default)
}

func TestParse_MultipleReturns(t *testing.T) {
	s, err := Parse("split(Tensor x) -> (Tensor, Tensor)")
	require.NoError(t, err)
	require.Len(t, s.Returns, 2)
}

func TestParse_AliasAnnotations(t *testing.T) {
	s, err := Parse("f(Tensor(a) x) -> Tensor(a)")
	require.NoError(t, err)
	require.NotNil(t, s.Args[0].Alias)
	assert.Equal(t, "a", s.Args[0].Alias.Set)
	assert.False(t, s.Args[0].Alias.IsWrite)
	require.NotNil(t, s.Returns[0].Alias)
	assert.Equal(t, KindView, s.Kind())

	s, err = Parse("f_(Tensor(a!) x) -> Tensor(a!)")
	require.NoError(t, err)
	assert.True(t, s.Args[0].Alias.IsWrite)
	assert.Equal(t, KindMutable, s.Kind())
}

func TestParse_NoArgs(t *testing.T) {
	s, err := Parse("f() -> Tensor")
	require.NoError(t, err)
	assert.Empty(t, s.Args)
	assert.False(t, s.HasTensorArg())
}

func TestParse_Roundtrip(t *testing.T) {
	srcs := []string{
		"numpy_sin(Tensor x) -> Tensor",
		"add.out(Tensor x, Tensor y) -> Tensor",
		"f(Tensor x, *, int k=1) -> (Tensor, Tensor)",
		"v(Tensor(a) x) -> Tensor(a)",
	}
	for _, src := range srcs {
		s, err := Parse(src)
		require.NoError(t, err, src)
		assert.Equal(t, src, s.String(), "String should reconstruct the source")
	}
}

func TestParse_Errors(t *testing.T) {
	bad := []string{
		"",
		"f",
		"f(",
		"f() ->",
		"f(Tensor) -> Tensor",          // missing arg name
		"f(Complex x) -> Tensor",       // unsupported type
		"f(int(a) x) -> Tensor",        // alias on non-Tensor
		"f(Tensor x) -> Tensor extra",  // trailing input
		"f(Tensor x, *, *, int k=1) -> Tensor", // duplicate '*'
		"f(Tensor x, int k=) -> Tensor",        // empty default
	}
	for _, src := range bad {
		_, err := Parse(src)
		assert.Error(t, err, "Parse(%q) should fail", src)
	}
}
