package money

import (
	"errors"
	"testing"

	"profitbliss-backend/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "whole units", input: "125", want: 12500},
		{name: "two decimals", input: "125.50", want: 12550},
		{name: "one decimal", input: "0.5", want: 50},
		{name: "single cent", input: "0.01", want: 1},
		{name: "zero rejected", input: "0", wantErr: true},
		{name: "negative rejected", input: "-10", wantErr: true},
		{name: "sub-cent rejected", input: "1.005", wantErr: true},
		{name: "garbage rejected", input: "ten", wantErr: true},
		{name: "empty rejected", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) expected error, got %d", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseErrorsAreInvalidInput(t *testing.T) {
	// Parse failures must carry the INVALID_INPUT code so the API edge
	// maps them to 400 rather than the generic 500 fallback.
	for _, input := range []string{"abc", "-5", "1.005", "0", ""} {
		_, err := Parse(input)
		if err == nil {
			t.Fatalf("Parse(%q) expected error", input)
		}
		var domErr domain.Error
		if !errors.As(err, &domErr) {
			t.Errorf("Parse(%q) error %v is not a domain error", input, err)
			continue
		}
		if domErr.Code != domain.CodeInvalidInput {
			t.Errorf("Parse(%q) code = %s, want %s", input, domErr.Code, domain.CodeInvalidInput)
		}
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{12550, "125.50"},
		{50, "0.50"},
		{0, "0.00"},
		{1, "0.01"},
		{100000000, "1000000.00"},
	}

	for _, tt := range tests {
		if got := Format(tt.cents); got != tt.want {
			t.Errorf("Format(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	cents, err := Parse("99.99")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := Format(cents); got != "99.99" {
		t.Errorf("round trip = %q, want 99.99", got)
	}
}
