package recorder

import (
	"errors"
	"strings"
	"testing"

	"github.com/soundset/datacap/internal/dataset"
)

func validParams() Params {
	return Params{
		Category:        dataset.CategoryOK,
		DurationSeconds: 5,
		Prefix:          "sample",
		StartIndex:      1,
	}
}

func TestValidateParams(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr string // substring of the error message, empty means valid
	}{
		{"valid OK", func(p *Params) {}, ""},
		{"valid NG", func(p *Params) { p.Category = dataset.CategoryNG }, ""},
		{"prefix with underscore and hyphen", func(p *Params) { p.Prefix = "take_01-a" }, ""},
		{"start index zero", func(p *Params) { p.StartIndex = 0 }, ""},
		{"max duration", func(p *Params) { p.DurationSeconds = 300 }, ""},

		{"empty category", func(p *Params) { p.Category = "" }, "category"},
		{"unknown category", func(p *Params) { p.Category = "MAYBE" }, "category must be one of"},
		{"zero duration", func(p *Params) { p.DurationSeconds = 0 }, "duration_seconds must be at least 1"},
		{"excessive duration", func(p *Params) { p.DurationSeconds = 301 }, "duration_seconds must be at most 300"},
		{"empty prefix", func(p *Params) { p.Prefix = "" }, "prefix is required"},
		{"prefix with space", func(p *Params) { p.Prefix = "my take" }, "prefix"},
		{"prefix with slash", func(p *Params) { p.Prefix = "a/b" }, "prefix"},
		{"prefix starting with hyphen", func(p *Params) { p.Prefix = "-sample" }, "prefix"},
		{"negative start index", func(p *Params) { p.StartIndex = -1 }, "start_index must be at least 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)

			err := ValidateParams(p)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected valid params, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("Expected ErrInvalidParameter, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}
