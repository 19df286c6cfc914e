// internal/rules/coercion_test.go
package rules

import (
	"testing"
	"time"

	"github.com/solatis/segmentkeeper/internal/types"
)

func TestCoerce_Numeric(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    float64
		wantErr bool
	}{
		{"integer", "1000", 1000, false},
		{"decimal", "12.75", 12.75, false},
		{"negative", "-3", -3, false},
		{"padded", "  42 ", 42, false},
		{"empty", "", 0, true},
		{"whitespace only", "   ", 0, true},
		{"word", "abc", 0, true},
		{"trailing junk", "12abc", 0, true},
		{"exponent", "1e3", 1000, false},
		{"leading dot", ".5", 0.5, false},
		{"nan", "NaN", 0, true},
		{"infinity", "Inf", 0, true},
		{"negative infinity", "-Infinity", 0, true},
		{"hex float", "0x1p4", 0, true},
		{"underscores", "1_000", 0, true},
		{"out of range", "1e999", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.value, types.KindNumeric)
			if tt.wantErr {
				if err != ErrCoercionFailed {
					t.Errorf("Coerce() error = %v, want ErrCoercionFailed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Coerce() error = %v, want nil", err)
			}
			if got.(float64) != tt.want {
				t.Errorf("Coerce() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCoerce_Date(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    time.Time
		wantErr bool
	}{
		{"calendar date", "2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), false},
		{"rfc3339 utc", "2024-03-15T10:30:00Z", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), false},
		{"rfc3339 offset", "2024-03-15T12:30:00+02:00", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), false},
		{"us format", "03/15/2024", time.Time{}, true},
		{"empty", "", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.value, types.KindDate)
			if tt.wantErr {
				if err != ErrCoercionFailed {
					t.Errorf("Coerce() error = %v, want ErrCoercionFailed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Coerce() error = %v, want nil", err)
			}
			if !got.(time.Time).Equal(tt.want) {
				t.Errorf("Coerce() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCoerce_UnknownKind(t *testing.T) {
	if _, err := Coerce("1", types.KindUnknown); err != ErrCoercionFailed {
		t.Errorf("Coerce() error = %v, want ErrCoercionFailed", err)
	}
}
