package validation

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kbukum/httpkit/errors"
)

// DetailFields holds the []FieldError of a validation failure.
const DetailFields = "fields"

// FieldError is one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Checker collects validation failures.
type Checker struct {
	errors []FieldError
}

// NewChecker returns an empty Checker.
func NewChecker() *Checker {
	return &Checker{}
}

// Fail records a failure.
func (c *Checker) Fail(field, message string) *Checker {
	c.errors = append(c.errors, FieldError{Field: field, Message: message})
	return c
}

// Check records a failure unless condition holds.
func (c *Checker) Check(condition bool, field, message string) *Checker {
	if !condition {
		c.Fail(field, message)
	}
	return c
}

// Required fails when value is blank.
func (c *Checker) Required(field, value string) *Checker {
	return c.Check(strings.TrimSpace(value) != "", field, "is required")
}

// OneOf fails when a non-empty value is not in allowed.
func (c *Checker) OneOf(field, value string, allowed ...string) *Checker {
	if value == "" || slices.Contains(allowed, value) {
		return c
	}
	return c.Fail(field, "must be one of: "+strings.Join(allowed, ", "))
}

// Range fails when value is outside [minVal, maxVal].
func (c *Checker) Range(field string, value, minVal, maxVal int) *Checker {
	return c.Check(value >= minVal && value <= maxVal, field,
		fmt.Sprintf("must be between %d and %d", minVal, maxVal))
}

// NonNegative fails on a negative duration.
func (c *Checker) NonNegative(field string, d time.Duration) *Checker {
	return c.Check(d >= 0, field, "must not be negative")
}

// Merge appends the failures of err when it came from this package, or
// records err under field otherwise.
func (c *Checker) Merge(field string, err error) *Checker {
	if err == nil {
		return c
	}
	if appErr, ok := errors.AsAppError(err); ok {
		if fields, ok := appErr.Details[DetailFields].([]FieldError); ok {
			c.errors = append(c.errors, fields...)
			return c
		}
	}
	return c.Fail(field, err.Error())
}

// Errors returns the recorded failures.
func (c *Checker) Errors() []FieldError {
	return slices.Clone(c.errors)
}

// Err returns a CONFIGURATION_ERROR listing every failure, or nil.
func (c *Checker) Err() error {
	if len(c.errors) == 0 {
		return nil
	}
	messages := make([]string, len(c.errors))
	for i, e := range c.errors {
		messages[i] = e.Field + ": " + e.Message
	}
	return errors.New(errors.ErrCodeConfiguration, strings.Join(messages, "; ")).
		WithDetail(DetailFields, c.Errors())
}
