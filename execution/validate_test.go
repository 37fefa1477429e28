package execution

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdmx/execbox/config"
	"github.com/isdmx/execbox/sandbox"
)

func ptr[T any](v T) *T {
	return &v
}

func TestNormalizeTimeout(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  int
	}{
		{"one second", 1, 1},
		{"seconds", 5, 5},
		{"fractional seconds round up", 2.1, 3},
		{"largest seconds value", 999, 999},
		{"boundary stays seconds", 1000, 1000},
		{"just over boundary is milliseconds", 1001, 2},
		{"milliseconds", 5000, 5},
		{"milliseconds round up", 5500, 6},
		{"large milliseconds", 9e12, 9000000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTimeout(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []float64{0, 0.5, -3, math.NaN(), math.Inf(1), 1e13, 1e300} {
		_, err := NormalizeTimeout(bad)
		assert.ErrorIs(t, err, ErrInvalidTimeout, "value %v", bad)
	}
}

func TestValidatorValidate(t *testing.T) {
	v := NewValidator(sandbox.DefaultProfiles(), DefaultLimits())

	tests := []struct {
		name    string
		req     Request
		wantErr error
		message string
	}{
		{
			name:    "unsupported language",
			req:     Request{Language: "ruby", Code: "puts 1"},
			wantErr: ErrInvalidLanguage,
			message: "Unsupported language: ruby",
		},
		{
			name:    "missing language",
			req:     Request{Code: "puts 1"},
			wantErr: ErrInvalidLanguage,
		},
		{
			name:    "missing code",
			req:     Request{Language: "python"},
			wantErr: ErrCodeRequired,
		},
		{
			name:    "code too large",
			req:     Request{Language: "python", Code: strings.Repeat("a", 50001)},
			wantErr: ErrCodeTooLarge,
			message: "Code exceeds maximum length of 50000 characters",
		},
		{
			name:    "input too large",
			req:     Request{Language: "python", Code: "print(1)", Input: ptr(strings.Repeat("a", 10001))},
			wantErr: ErrInputTooLarge,
		},
		{
			name:    "timeout below minimum",
			req:     Request{Language: "python", Code: "print(1)", Timeout: ptr(0.0)},
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "timeout beyond duration range",
			req:     Request{Language: "python", Code: "print(1)", Timeout: ptr(1e300)},
			wantErr: ErrInvalidTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			if tt.message != "" {
				assert.Equal(t, tt.message, verr.Error())
			}
		})
	}

	t.Run("NormalizesLanguageAndDefaults", func(t *testing.T) {
		job, err := v.Validate(Request{Language: "  Python ", Code: "print('hi')"})
		require.NoError(t, err)
		assert.Equal(t, "python", job.Language)
		assert.Equal(t, 10, job.TimeoutSeconds)
		assert.Nil(t, job.Input)
	})

	t.Run("LimitsCountCharactersNotBytes", func(t *testing.T) {
		_, err := v.Validate(Request{Language: "python", Code: strings.Repeat("é", 50000)})
		assert.NoError(t, err)
	})

	t.Run("KeepsInputAndTimeout", func(t *testing.T) {
		job, err := v.Validate(Request{Language: "c", Code: "int main(){}", Input: ptr("1 2"), Timeout: ptr(5000.0)})
		require.NoError(t, err)
		assert.Equal(t, "1 2", *job.Input)
		assert.Equal(t, 5, job.TimeoutSeconds)
	})
}

func TestLimitsFromConfig(t *testing.T) {
	cfg := &config.Config{Execution: config.ExecutionConfig{
		DefaultTimeoutSec: 7,
		MaxCodeChars:      10,
		MaxInputChars:     3,
	}}

	limits := LimitsFromConfig(cfg)
	assert.Equal(t, Limits{DefaultTimeoutSec: 7, MaxCodeChars: 10, MaxInputChars: 3}, limits)

	v := NewValidator(sandbox.DefaultProfiles(), limits)
	job, err := v.Validate(Request{Language: "python", Code: "print(1)"})
	require.NoError(t, err)
	assert.Equal(t, 7, job.TimeoutSeconds)

	_, err = v.Validate(Request{Language: "python", Code: "print(12345)"})
	assert.ErrorIs(t, err, ErrCodeTooLarge)
}
