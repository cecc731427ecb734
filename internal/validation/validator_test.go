package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixPayload struct {
	Lat      float64  `validate:"latitude"`
	Lng      float64  `validate:"longitude"`
	SpeedKmh *float64 `validate:"omitempty,gte=0"`
}

func TestValidateStruct_Passes(t *testing.T) {
	assert.Nil(t, ValidateStruct(&fixPayload{Lat: 43.7, Lng: 7.27}))
}

func TestValidateStruct_SingleFailure(t *testing.T) {
	err := ValidateStruct(&fixPayload{Lat: 95, Lng: 7.27})
	require.NotNil(t, err)
	require.Len(t, err.Errors(), 1)
	assert.Equal(t, "Lat", err.Errors()[0].Field())
	assert.Contains(t, err.Error(), "valid latitude")

	apiErr := err.ToAPIError()
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Equal(t, "Lat", apiErr.Details["field"])
}

func TestValidateStruct_MultipleFailures(t *testing.T) {
	speed := -1.0
	err := ValidateStruct(&fixPayload{Lat: 95, Lng: 200, SpeedKmh: &speed})
	require.NotNil(t, err)
	assert.Len(t, err.Errors(), 3)

	apiErr := err.ToAPIError()
	assert.Contains(t, apiErr.Message, "Lat")
	assert.Contains(t, apiErr.Message, "Lng")
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	require.True(t, ok)
	assert.Len(t, fields, 3)
}
