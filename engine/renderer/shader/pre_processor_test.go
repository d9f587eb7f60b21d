package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariantSetDefineUndefine(t *testing.T) {
	v := NewVariantSet("CLOUDS_ENABLED")

	assert.True(t, v.Defined("CLOUDS_ENABLED"))
	assert.False(t, v.Defined("SHADOWS_ENABLED"))

	v.Define("SHADOWS_ENABLED")
	assert.True(t, v.Defined("SHADOWS_ENABLED"))

	v.Undefine("CLOUDS_ENABLED")
	assert.False(t, v.Defined("CLOUDS_ENABLED"))
}

func TestVariantSetNamesSorted(t *testing.T) {
	v := NewVariantSet("ZETA", "ALPHA", "MID")
	assert.Equal(t, []string{"ALPHA", "MID", "ZETA"}, v.Names())
}

func TestVariantSetPushPop(t *testing.T) {
	v := NewVariantSet("BASE")

	v.Push()
	v.Define("OVERLAY")
	v.Undefine("BASE")
	assert.True(t, v.Defined("OVERLAY"))
	assert.False(t, v.Defined("BASE"))

	v.Pop()
	assert.False(t, v.Defined("OVERLAY"))
	assert.True(t, v.Defined("BASE"))

	// Pop with nothing saved is a no-op
	v.Pop()
	assert.True(t, v.Defined("BASE"))
}

func TestVariantSetNestedPushPop(t *testing.T) {
	v := NewVariantSet()

	v.Push()
	v.Define("A")
	v.Push()
	v.Define("B")
	assert.True(t, v.Defined("A"))
	assert.True(t, v.Defined("B"))

	v.Pop()
	assert.True(t, v.Defined("A"))
	assert.False(t, v.Defined("B"))

	v.Pop()
	assert.False(t, v.Defined("A"))
}

func TestProcessIfdefTaken(t *testing.T) {
	pp := NewPreProcessor()
	src := "a\n//#ifdef X\nb\n//#endif\nc"

	out, err := pp.Process(src, NewVariantSet("X"))
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc", out)
}

func TestProcessIfdefSkipped(t *testing.T) {
	pp := NewPreProcessor()
	src := "a\n//#ifdef X\nb\n//#endif\nc"

	out, err := pp.Process(src, NewVariantSet())
	require.NoError(t, err)
	assert.Equal(t, "a\nc", out)
}

func TestProcessIfndef(t *testing.T) {
	pp := NewPreProcessor()
	src := "//#ifndef X\nfallback\n//#endif"

	out, err := pp.Process(src, NewVariantSet())
	require.NoError(t, err)
	assert.Equal(t, "fallback", out)

	out, err = pp.Process(src, NewVariantSet("X"))
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestProcessElse(t *testing.T) {
	pp := NewPreProcessor()
	src := "//#ifdef X\non\n//#else\noff\n//#endif"

	out, err := pp.Process(src, NewVariantSet("X"))
	require.NoError(t, err)
	assert.Equal(t, "on", out)

	out, err = pp.Process(src, NewVariantSet())
	require.NoError(t, err)
	assert.Equal(t, "off", out)
}

func TestProcessNestedConditionals(t *testing.T) {
	pp := NewPreProcessor()
	src := "//#ifdef OUTER\nouter\n//#ifdef INNER\ninner\n//#endif\n//#endif"

	out, err := pp.Process(src, NewVariantSet("OUTER", "INNER"))
	require.NoError(t, err)
	assert.Equal(t, "outer\ninner", out)

	out, err = pp.Process(src, NewVariantSet("OUTER"))
	require.NoError(t, err)
	assert.Equal(t, "outer", out)

	// Inner define without outer produces nothing
	out, err = pp.Process(src, NewVariantSet("INNER"))
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestProcessNilVariants(t *testing.T) {
	pp := NewPreProcessor()
	src := "//#ifdef X\nhidden\n//#endif\nvisible"

	out, err := pp.Process(src, nil)
	require.NoError(t, err)
	assert.Equal(t, "visible", out)
}

func TestProcessUnbalancedDirectives(t *testing.T) {
	pp := NewPreProcessor()

	_, err := pp.Process("//#ifdef X\nno endif", nil)
	assert.Error(t, err)

	_, err = pp.Process("//#endif", nil)
	assert.Error(t, err)

	_, err = pp.Process("//#else", nil)
	assert.Error(t, err)

	_, err = pp.Process("//#ifdef X\n//#else\n//#else\n//#endif", nil)
	assert.Error(t, err)

	_, err = pp.Process("//#ifdef\nbody\n//#endif", nil)
	assert.Error(t, err)
}

func TestProcessInclude(t *testing.T) {
	pp := NewPreProcessor()
	pp.RegisterInclude("math/common", "fn square(x: f32) -> f32 { return x * x; }")

	out, err := pp.Process("//#include <math/common>\nfn main() {}", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "fn square")
	assert.Contains(t, out, "fn main")
}

func TestProcessIncludeUnknown(t *testing.T) {
	pp := NewPreProcessor()

	_, err := pp.Process("//#include <missing>", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestProcessIncludeNested(t *testing.T) {
	pp := NewPreProcessor()
	pp.RegisterInclude("inner", "const INNER = 1.0;")
	pp.RegisterInclude("outer", "//#include <inner>\nconst OUTER = 2.0;")

	out, err := pp.Process("//#include <outer>", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "INNER")
	assert.Contains(t, out, "OUTER")
}

func TestProcessIncludeCycle(t *testing.T) {
	pp := NewPreProcessor()
	pp.RegisterInclude("a", "//#include <b>")
	pp.RegisterInclude("b", "//#include <a>")

	_, err := pp.Process("//#include <a>", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestProcessIncludeWithConditionals(t *testing.T) {
	pp := NewPreProcessor()
	pp.RegisterInclude("shadow/sampling", "//#ifdef PCF\nfn pcf() {}\n//#else\nfn hard() {}\n//#endif")

	out, err := pp.Process("//#include <shadow/sampling>", NewVariantSet("PCF"))
	require.NoError(t, err)
	assert.Contains(t, out, "fn pcf")
	assert.NotContains(t, out, "fn hard")
}
