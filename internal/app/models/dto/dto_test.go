package dto

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/universys/universyslite/internal/pkg/validation"
)

func TestHandleValidationErrorListsFields(t *testing.T) {
	v := validator.New()
	v.SetTagName("binding")
	require.NoError(t, validation.Configure(v))

	err := v.Struct(PostGradeRequest{Grade: "Z"})
	detail := HandleValidationError(err)

	assert.Equal(t, ErrorCodeValidationFailed, detail.Code)
	assert.Equal(t, "grade", detail.Field)
	fields, ok := detail.Details.([]FieldError)
	require.True(t, ok)
	require.Len(t, fields, 1)
	assert.Equal(t, "grade must be a letter grade", fields[0].Message)
}

func TestHandleValidationErrorMalformedBody(t *testing.T) {
	detail := HandleValidationError(errors.New("unexpected EOF"))
	assert.Equal(t, ErrorCodeBadRequest, detail.Code)
	assert.Equal(t, "unexpected EOF", detail.Details)
}

func TestEnvelopeJSON(t *testing.T) {
	raw, err := json.Marshal(NewErrorResponse(NewErrorDetail(ErrorCodeSectionFull, "full")))
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, false, out["success"])
	assert.NotContains(t, out, "data")
	assert.Equal(t, "ENR_002", out["error"].(map[string]interface{})["code"])
}
