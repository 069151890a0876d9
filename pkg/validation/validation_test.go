package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhawalhost/manageusers/pkg/apperr"
)

func TestStructReportsJSONFieldName(t *testing.T) {
	type req struct {
		FirstName string `json:"firstName" validate:"notblank"`
		Email     string `json:"email" validate:"required,email"`
	}

	err := Struct(req{FirstName: "   ", Email: "a@b.com"})

	var e *apperr.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Equal(t, "firstName", e.Field)

	assert.NoError(t, Struct(req{FirstName: "Bob", Email: "a@b.com"}))
}
