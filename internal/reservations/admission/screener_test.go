package admission

import (
	"strings"
	"testing"

	apperrors "yoyaku/pkg/errors"
)

func TestScreenFieldsAcceptsCleanInput(t *testing.T) {
	s := NewScreener(testLogger())

	clean, err := s.ScreenFields("client-a", []ScreenField{
		{Name: "customer_name", Value: "  Taro Yamada ", MaxLength: MaxNameLength},
		{Name: "date", Value: "2025-06-10", MaxLength: MaxDateLength},
		{Name: "time", Value: "11:00", MaxLength: MaxTimeLength},
	})
	if err != nil {
		t.Fatalf("clean input rejected: %v", err)
	}

	if clean["customer_name"] != "Taro Yamada" {
		t.Errorf("expected trimmed name, got %q", clean["customer_name"])
	}
	if clean["date"] != "2025-06-10" || clean["time"] != "11:00" {
		t.Errorf("date or time mangled: %q %q", clean["date"], clean["time"])
	}
}

func TestScreenFieldsRejectsThreats(t *testing.T) {
	s := NewScreener(testLogger())

	cases := []struct {
		name  string
		value string
	}{
		{"sql keyword", "Robert; DROP TABLE bookings"},
		{"sql quote", "x' OR '1'='1"},
		{"script tag", "<script>alert(1)</script>"},
		{"iframe", `<iframe src="evil">`},
		{"js scheme", "javascript:alert(1)"},
		{"event handler", `x onerror=alert(1)`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.ScreenFields("client-a", []ScreenField{
				{Name: "customer_name", Value: tc.value, MaxLength: MaxNameLength},
			})
			if !apperrors.HasCode(err, apperrors.CodeValidation) {
				t.Errorf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}

func TestScreenFieldsEscapesMarkup(t *testing.T) {
	s := NewScreener(testLogger())

	clean, err := s.ScreenFields("client-a", []ScreenField{
		{Name: "customer_name", Value: `Yamada "Hana" Co`, MaxLength: MaxNameLength},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(clean["customer_name"], "&quot;") {
		t.Errorf("quotes must be escaped, got %q", clean["customer_name"])
	}
}

func TestScreenFieldsEnforcesLengthBound(t *testing.T) {
	s := NewScreener(testLogger())

	_, err := s.ScreenFields("client-a", []ScreenField{
		{Name: "customer_name", Value: strings.Repeat("a", MaxNameLength+1), MaxLength: MaxNameLength},
	})
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("expected VALIDATION_ERROR for oversize input, got %v", err)
	}
}
