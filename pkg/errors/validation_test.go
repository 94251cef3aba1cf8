package errors

import (
	"math"
	"testing"
)

func TestValidateColumnName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "latitude", false},
		{"valid with space", "q obs", false},
		{"valid unicode", "höhe", false},

		{"empty", "", true},
		{"blank", "   ", true},
		{"too long", string(make([]byte, 300)), true},
		{"control char", "lat\x01", true},
		{"newline", "lat\nlon", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateColumnName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateColumnName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFinite(t *testing.T) {
	if err := ValidateFinite("lat", 45); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateFinite("lat", math.NaN()); !Is(err, ErrCodeInvalidInput) {
		t.Errorf("NaN: got %v, want INVALID_INPUT", err)
	}
	if err := ValidateFinite("lat", math.Inf(-1)); err == nil {
		t.Error("-Inf: expected error")
	}
}

func TestValidateCRS(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"EPSG:4326", false},
		{"epsg:3857", false},
		{"+proj=longlat +datum=WGS84", false},
		{"", true},
		{"EPSG:", true},
		{"WGS84", true},
		{"EPSG:12", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateCRS(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCRS(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFormat(t *testing.T) {
	allowed := map[string]bool{"png": true, "pdf": true}
	if err := ValidateFormat("png", allowed); err != nil {
		t.Errorf("png: %v", err)
	}
	if err := ValidateFormat("bmp", allowed); !Is(err, ErrCodeInvalidFormat) {
		t.Errorf("bmp: got %v, want INVALID_FORMAT", err)
	}
}
