package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause, CodeStatsRepoWrite, "insert sample")
	require.Error(t, err)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, CodeStatsRepoWrite, CodeOf(err))
	assert.Contains(t, err.Error(), "SYSTEM_STATS_REPOSITORY_WRITE_ERROR")
	assert.Contains(t, err.Error(), "disk full")
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeUnknown, "ignored"))
}

func TestCodeOf_Plain(t *testing.T) {
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeUnknown, CodeOf(nil))
}

func TestIsCode_Nested(t *testing.T) {
	inner := New(CodeWatcherTemperature, "read sensor")
	outer := Wrap(fmt.Errorf("capture: %w", inner), CodeWatcherSaveStats, "save")

	assert.Equal(t, CodeWatcherSaveStats, CodeOf(outer))
	assert.True(t, IsCode(outer, CodeWatcherSaveStats))
	assert.True(t, IsCode(outer, CodeWatcherTemperature))
	assert.False(t, IsCode(outer, CodeStatsRepoRead))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeBadRequest, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeMalformedToken, http.StatusInternalServerError},
		{CodeMonitoringGetStats, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
			assert.NotEmpty(t, tt.code.Description())
		})
	}
}

func TestError_DefaultMessage(t *testing.T) {
	err := &Error{Code: CodeNotFound}
	assert.Equal(t, "ENTITY_NOT_FOUND: Entity not found", err.Error())
}
