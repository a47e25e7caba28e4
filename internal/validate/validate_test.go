package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bootcamp-directory/internal/apperr"
)

type payload struct {
	Name     string `json:"name" validate:"required,max=5"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"omitempty,oneof=user publisher"`
	Password string `json:"password" validate:"min=6"`
}

func TestStruct_OK(t *testing.T) {
	assert.NoError(t, Struct(payload{Name: "Jane", Email: "jane@example.com", Password: "123456"}))
}

func TestStruct_ReportsJSONNames(t *testing.T) {
	err := Struct(payload{Name: "Jonathan", Email: "nope", Role: "admin", Password: "123"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t,
		"name can not be more than 5 characters, email must be a valid email address, role must be one of: user publisher, password must be at least 6 characters",
		apperr.Message(err))
}

func TestEcho_Validate(t *testing.T) {
	err := Echo{}.Validate(&payload{Email: "jane@example.com", Password: "secret"})
	require.Error(t, err)
	assert.Equal(t, "name is required", apperr.Message(err))
}
