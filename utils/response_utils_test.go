package utils

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc.def", BearerToken("Bearer abc.def"))
	assert.Equal(t, "abc", BearerToken("bearer   abc "))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken("abc"))
	assert.Empty(t, BearerToken(""))
}

func TestFormatValidationErrors(t *testing.T) {
	type payload struct {
		Language string `validate:"oneof=auto te en"`
	}
	err := validator.New().Struct(payload{Language: "fr"})

	assert.Equal(t, []string{"Field 'Language' failed on the 'oneof' tag (value: auto te en)"}, FormatValidationErrors(err))
	assert.Equal(t, []string{"boom"}, FormatValidationErrors(errors.New("boom")))
	assert.Nil(t, FormatValidationErrors(nil))
}
