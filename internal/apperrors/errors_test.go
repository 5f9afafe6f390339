package apperrors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorCollectsFields(t *testing.T) {
	v := NewValidationError()
	assert.False(t, v.HasErrors())
	assert.NoError(t, v.ErrOrNil())

	v.Add("order_products.0.quantity", "too many")
	v.Add("order_products.0.quantity", "still too many")
	v.Add("address.city", "required")

	require.True(t, v.HasErrors())
	assert.Len(t, v.Fields["order_products.0.quantity"], 2)
	assert.Equal(t,
		"validation failed: address.city: required, order_products.0.quantity: too many; still too many",
		v.Error())
}

func TestAsValidationUnwraps(t *testing.T) {
	err := fmt.Errorf("checkout: %w", FieldError("notes", "too long"))

	v, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{"too long"}, v.Fields["notes"])

	_, ok = AsValidation(ErrNotFound)
	assert.False(t, ok)
}

func TestMerge(t *testing.T) {
	a := FieldError("name", "required")
	a.Merge(FieldError("slug", "taken"))
	a.Merge(nil)

	assert.Len(t, a.Fields, 2)
}
