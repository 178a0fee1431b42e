package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilder_Build(t *testing.T) {
	base := NewStd("database is locked")

	ee := New(base).
		Category(CategoryDatabase).
		Component("datastore").
		Context("pest_label", "aphid").
		Build()

	assert.Equal(t, "database is locked", ee.Error())
	assert.Equal(t, "database", ee.GetCategory())
	assert.Equal(t, "datastore", ee.GetComponent())
	assert.Equal(t, "aphid", ee.GetContext()["pest_label"])
	assert.False(t, ee.Timestamp.IsZero())
}

func TestErrorBuilder_DefaultCategory(t *testing.T) {
	ee := Newf("something went wrong").Build()

	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestEnhancedError_UnwrapAndIs(t *testing.T) {
	sentinel := NewStd("boom")

	ee := New(fmt.Errorf("wrapping: %w", sentinel)).
		Category(CategoryNetwork).
		Build()

	assert.ErrorIs(t, ee, sentinel)
	require.NotNil(t, ee.Unwrap())
}

func TestEnhancedError_IsMatchesCategory(t *testing.T) {
	a := Newf("first").Category(CategoryTimeout).Build()
	b := Newf("second").Category(CategoryTimeout).Build()
	c := Newf("third").Category(CategoryDatabase).Build()

	assert.ErrorIs(t, a, b)
	assert.NotErrorIs(t, a, c)
}

func TestErrorBuilder_Timing(t *testing.T) {
	ee := Newf("slow call").
		Timing("classify", 1500*time.Millisecond).
		Build()

	ctx := ee.GetContext()
	assert.Equal(t, "classify", ctx["operation"])
	assert.Equal(t, int64(1500), ctx["duration_ms"])
}

func TestGetContext_ReturnsCopy(t *testing.T) {
	ee := Newf("err").Context("key", "value").Build()

	ctx := ee.GetContext()
	ctx["key"] = "mutated"

	assert.Equal(t, "value", ee.GetContext()["key"])
}

func TestGetComponent_UnknownOutsideRegisteredPackages(t *testing.T) {
	// Built from a test file, so stack detection finds no registered
	// internal package.
	ee := Newf("err").Build()

	assert.Equal(t, ComponentUnknown, ee.GetComponent())
}
