package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderCarriesMetadata(t *testing.T) {
	t.Parallel()

	err := Newf("worksheet %q not found", "responses").
		Category(CategoryNotFound).
		Component("sheets").
		Context("spreadsheet", "visit form - data").
		Build()

	var ee *EnhancedError
	require.True(t, As(err, &ee))
	assert.Equal(t, CategoryNotFound, ee.Category)
	assert.Equal(t, "sheets", ee.Component)
	assert.Equal(t, `worksheet "responses" not found`, err.Error())

	v, ok := ee.GetContext("spreadsheet")
	require.True(t, ok)
	assert.Equal(t, "visit form - data", v)
}

func TestBuilderDefaults(t *testing.T) {
	t.Parallel()

	err := Newf("boom").Build()

	var ee *EnhancedError
	require.True(t, As(err, &ee))
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.Equal(t, ComponentUnknown, ee.Component)
	assert.False(t, ee.Timestamp.IsZero())
}

func TestBuildNilError(t *testing.T) {
	t.Parallel()

	assert.Nil(t, New(nil).Build())
}

func TestUnwrapPreservesSentinel(t *testing.T) {
	t.Parallel()

	sentinel := NewStd("no usable credentials")
	err := New(fmt.Errorf("loading: %w", sentinel)).
		Category(CategoryCredentials).
		Component("sheets").
		Build()

	assert.True(t, Is(err, sentinel))
	assert.True(t, HasCategory(err, CategoryCredentials))
	assert.False(t, HasCategory(err, CategorySchema))
}

func TestIsMatchesByCategory(t *testing.T) {
	t.Parallel()

	a := Newf("a").Category(CategorySchema).Build()
	b := Newf("b").Category(CategorySchema).Build()
	c := Newf("c").Category(CategoryHTTP).Build()

	assert.True(t, Is(a, b))
	assert.False(t, Is(a, c))
}
