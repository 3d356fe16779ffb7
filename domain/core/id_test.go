package core

import (
	"errors"
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}
	if ID("not-empty").IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

// TestParseReceptorID tests receptor ID parsing
func TestParseReceptorID(t *testing.T) {
	tests := []struct {
		input    string
		expected ReceptorID
		hasError bool
	}{
		{"public", ReceptorID("public"), false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, test := range tests {
		result, err := ParseReceptorID(test.input)
		if test.hasError && err == nil {
			t.Errorf("Expected error for input '%s', but got none", test.input)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

// TestContractErrors checks the error taxonomy helpers
func TestContractErrors(t *testing.T) {
	err := NewUnsupportedError("set value", "Calc")
	if !IsUnsupported(err) {
		t.Errorf("Expected unsupported error, got %v", err)
	}
	if !IsContractError(err) {
		t.Errorf("Expected unsupported to be a contract violation")
	}
	if IsContractError(NewConversionError("h", "d")) {
		t.Errorf("Conversion failures are not contract violations")
	}
	if !errors.Is(NewConversionError("h", "d"), ErrNoConversionFactor) {
		t.Errorf("Expected conversion error to wrap ErrNoConversionFactor")
	}
	if !IsNotFoundError(ErrTableNotFound) {
		t.Errorf("Expected table not found to be a not-found error")
	}
}
