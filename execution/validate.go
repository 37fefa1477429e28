package execution

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/isdmx/execbox/config"
	"github.com/isdmx/execbox/sandbox"
)

// Validation sentinels
var (
	ErrInvalidLanguage = errors.New("invalid language")
	ErrCodeRequired    = errors.New("code required")
	ErrCodeTooLarge    = errors.New("code too large")
	ErrInputTooLarge   = errors.New("input too large")
	ErrInvalidTimeout  = errors.New("invalid timeout")
)

// millisecondThreshold is the largest timeout still read as seconds.
const millisecondThreshold = 1000

// MaxTimeoutSeconds is the largest timeout a time.Duration can hold.
const MaxTimeoutSeconds = math.MaxInt64 / int64(time.Second)

// ValidationError carries a caller-facing message for a rejected request
type ValidationError struct {
	Err     error
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(err error, format string, args ...any) error {
	return &ValidationError{Err: err, Message: fmt.Sprintf(format, args...)}
}

// Request is an execution request as received from a caller
type Request struct {
	Language string   `json:"language"`
	Code     string   `json:"code"`
	Input    *string  `json:"input,omitempty"`
	Timeout  *float64 `json:"timeout,omitempty"`
}

// Job is a validated, normalized request
type Job struct {
	Language       string
	Code           string
	Input          *string
	TimeoutSeconds int
}

// Limits bounds request sizes and supplies the default timeout
type Limits struct {
	DefaultTimeoutSec int
	MaxCodeChars      int
	MaxInputChars     int
}

// DefaultLimits returns the stock request limits
func DefaultLimits() Limits {
	return Limits{
		DefaultTimeoutSec: 10,
		MaxCodeChars:      50000,
		MaxInputChars:     10000,
	}
}

// LimitsFromConfig reads the execution section
func LimitsFromConfig(cfg *config.Config) Limits {
	return Limits{
		DefaultTimeoutSec: cfg.Execution.DefaultTimeoutSec,
		MaxCodeChars:      cfg.Execution.MaxCodeChars,
		MaxInputChars:     cfg.Execution.MaxInputChars,
	}
}

// Validator checks requests against the profile table and limits
type Validator struct {
	profiles *sandbox.Profiles
	limits   Limits
}

// NewValidator creates a validator
func NewValidator(profiles *sandbox.Profiles, limits Limits) *Validator {
	return &Validator{profiles: profiles, limits: limits}
}

// Validate normalizes req into a Job or returns a *ValidationError.
// The language is matched case-insensitively after trimming surrounding
// whitespace, so " Python " selects the python profile.
func (v *Validator) Validate(req Request) (Job, error) {
	language := strings.ToLower(strings.TrimSpace(req.Language))
	if language == "" {
		return Job{}, invalid(ErrInvalidLanguage, "Language is required")
	}
	if _, ok := v.profiles.Lookup(language); !ok {
		return Job{}, invalid(ErrInvalidLanguage, "Unsupported language: %s", strings.TrimSpace(req.Language))
	}

	if req.Code == "" {
		return Job{}, invalid(ErrCodeRequired, "Code is required")
	}
	if utf8.RuneCountInString(req.Code) > v.limits.MaxCodeChars {
		return Job{}, invalid(ErrCodeTooLarge, "Code exceeds maximum length of %d characters", v.limits.MaxCodeChars)
	}

	if req.Input != nil && utf8.RuneCountInString(*req.Input) > v.limits.MaxInputChars {
		return Job{}, invalid(ErrInputTooLarge, "Input exceeds maximum length of %d characters", v.limits.MaxInputChars)
	}

	timeout := v.limits.DefaultTimeoutSec
	if req.Timeout != nil {
		seconds, err := NormalizeTimeout(*req.Timeout)
		if err != nil {
			return Job{}, err
		}
		timeout = seconds
	}

	return Job{
		Language:       language,
		Code:           req.Code,
		Input:          req.Input,
		TimeoutSeconds: timeout,
	}, nil
}

// NormalizeTimeout converts a caller timeout to whole seconds. Values above
// 1000 are read as milliseconds, everything else as seconds; both round up.
// A 500 ms timeout therefore cannot be expressed and means 500 s.
func NormalizeTimeout(value float64) (int, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 1 {
		return 0, invalid(ErrInvalidTimeout, "Timeout must be a number of at least 1")
	}
	seconds := math.Ceil(value)
	if value > millisecondThreshold {
		seconds = math.Ceil(value / 1000)
	}
	if seconds > float64(MaxTimeoutSeconds) {
		return 0, invalid(ErrInvalidTimeout, "Timeout must not exceed %d seconds", MaxTimeoutSeconds)
	}
	return int(seconds), nil
}
