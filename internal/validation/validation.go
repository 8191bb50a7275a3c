// Package validation provides input validation middleware for the TrustGate API.
package validation

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// MaxStringLength is the maximum length for string fields
const MaxStringLength = 10000

// MaxIDLength is the maximum length for user and device identifiers
const MaxIDLength = 128

var (
	// idRegex validates user and device identifiers. Letters, digits,
	// dots, dashes and underscores only; no whitespace or path tricks.
	idRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	// emailRegex is a loose sanity check, not an RFC 5322 validator
	emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidID checks if a string is a valid user or device identifier
func IsValidID(id string) bool {
	return id != "" && len(id) <= MaxIDLength && idRegex.MatchString(id)
}

// IsValidEmail checks if a string looks like an email address
func IsValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	// Trim whitespace
	s = strings.TrimSpace(s)

	// Limit length
	if len(s) > maxLen {
		s = s[:maxLen]
	}

	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	return s
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Field + ": " + e[0].Message
}

// Validate validates a request and returns errors
func Validate(validators ...func() *ValidationError) ValidationErrors {
	var errors ValidationErrors
	for _, v := range validators {
		if err := v(); err != nil {
			errors = append(errors, *err)
		}
	}
	return errors
}

// Required checks if a field is non-empty
func Required(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if strings.TrimSpace(value) == "" {
			return &ValidationError{Field: field, Message: "is required"}
		}
		return nil
	}
}

// ValidID checks if a field is a valid identifier
func ValidID(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil // Use Required for required fields
		}
		if !IsValidID(value) {
			return &ValidationError{Field: field, Message: "must contain only letters, digits, dots, dashes and underscores"}
		}
		return nil
	}
}

// ValidEmail checks if a field looks like an email address
func ValidEmail(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil
		}
		if !IsValidEmail(value) {
			return &ValidationError{Field: field, Message: "must be a valid email address"}
		}
		return nil
	}
}

// MaxLength checks if a field exceeds max length
func MaxLength(field, value string, max int) func() *ValidationError {
	return func() *ValidationError {
		if len(value) > max {
			return &ValidationError{Field: field, Message: "exceeds maximum length"}
		}
		return nil
	}
}

// ValidLatitude checks a latitude value
func ValidLatitude(field string, value float64) func() *ValidationError {
	return func() *ValidationError {
		if value < -90 || value > 90 {
			return &ValidationError{Field: field, Message: "must be between -90 and 90"}
		}
		return nil
	}
}

// ValidLongitude checks a longitude value
func ValidLongitude(field string, value float64) func() *ValidationError {
	return func() *ValidationError {
		if value < -180 || value > 180 {
			return &ValidationError{Field: field, Message: "must be between -180 and 180"}
		}
		return nil
	}
}

// IDParamMiddleware validates identifier URL parameters on routes that use them.
// Apply to route groups with :userID or :deviceID params to reject malformed
// identifiers early.
func IDParamMiddleware(params ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range params {
			v := c.Param(name)
			if v != "" && !IsValidID(v) {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
					"error":   "invalid_identifier",
					"message": name + " must contain only letters, digits, dots, dashes and underscores",
				})
				return
			}
		}
		c.Next()
	}
}
