package validation

import (
	"strings"
	"testing"
)

func TestIsValidID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"user-1", true},
		{"device_ABC.123", true},
		{"a", true},
		{strings.Repeat("x", MaxIDLength), true},

		// Invalid cases
		{"", false},
		{"user 1", false},       // Whitespace
		{"user/../etc", false},  // Path chars
		{"user@example", false}, // Symbols
		{strings.Repeat("x", MaxIDLength+1), false},
	}

	for _, tc := range tests {
		result := IsValidID(tc.id)
		if result != tc.valid {
			t.Errorf("IsValidID(%q) = %v, want %v", tc.id, result, tc.valid)
		}
	}
}

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"a@example.com", true},
		{"first.last@sub.example.co", true},

		// Invalid
		{"", false},
		{"not-an-email", false},
		{"a@b", false},
		{"a b@example.com", false},
		{"@example.com", false},
	}

	for _, tc := range tests {
		result := IsValidEmail(tc.email)
		if result != tc.valid {
			t.Errorf("IsValidEmail(%q) = %v, want %v", tc.email, result, tc.valid)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"hello", 10, "hello"},
		{"  hello  ", 10, "hello"},
		{"hello world", 5, "hello"},
		{"hello\x00world", 20, "helloworld"},
	}

	for _, tc := range tests {
		result := SanitizeString(tc.input, tc.maxLen)
		if result != tc.expected {
			t.Errorf("SanitizeString(%q, %d) = %q, want %q", tc.input, tc.maxLen, result, tc.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	// Test valid input
	errors := Validate(
		Required("userId", "user-1"),
		ValidID("deviceId", "device-1"),
		ValidEmail("email", "a@example.com"),
	)
	if len(errors) != 0 {
		t.Errorf("Expected no errors, got %v", errors)
	}

	// Test invalid input
	errors = Validate(
		Required("userId", ""),
		ValidID("deviceId", "has spaces"),
	)
	if len(errors) != 2 {
		t.Errorf("Expected 2 errors, got %d", len(errors))
	}
}

func TestValidLatitudeLongitude(t *testing.T) {
	if err := ValidLatitude("lat", 52.52)(); err != nil {
		t.Errorf("Expected 52.52 to be a valid latitude: %v", err)
	}
	if err := ValidLatitude("lat", 90)(); err != nil {
		t.Errorf("Expected 90 to be a valid latitude: %v", err)
	}
	if err := ValidLatitude("lat", 91)(); err == nil {
		t.Error("Expected 91 to be an invalid latitude")
	}
	if err := ValidLatitude("lat", -91)(); err == nil {
		t.Error("Expected -91 to be an invalid latitude")
	}

	if err := ValidLongitude("lon", 13.405)(); err != nil {
		t.Errorf("Expected 13.405 to be a valid longitude: %v", err)
	}
	if err := ValidLongitude("lon", -180)(); err != nil {
		t.Errorf("Expected -180 to be a valid longitude: %v", err)
	}
	if err := ValidLongitude("lon", 180.5)(); err == nil {
		t.Error("Expected 180.5 to be an invalid longitude")
	}
}

func TestMaxLength(t *testing.T) {
	// Under limit
	err := MaxLength("field", "hello", 10)()
	if err != nil {
		t.Error("Expected no error for string under limit")
	}

	// At limit
	err = MaxLength("field", "hello", 5)()
	if err != nil {
		t.Error("Expected no error for string at limit")
	}

	// Over limit
	err = MaxLength("field", "hello world", 5)()
	if err == nil {
		t.Error("Expected error for string over limit")
	}
}
