// Killfeed - EVE Online Killmail Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package validation

import (
	"errors"
	"strings"
	"testing"
)

type sample struct {
	Workers int      `koanf:"workers" validate:"min=1,max=64"`
	Policy  string   `koanf:"policy" validate:"oneof=block reject"`
	Channel string   `json:"channel_id" validate:"omitempty,snowflake"`
	URL     string   `validate:"required,url"`
	Tags    []string `validate:"max=2"`
}

func TestValidateStruct_Valid(t *testing.T) {
	s := sample{Workers: 4, Policy: "block", Channel: "123456789012345678", URL: "https://esi.evetech.net"}
	if err := ValidateStruct(&s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateStruct_Messages(t *testing.T) {
	s := sample{Workers: 0, Policy: "drop", Channel: "abc", Tags: []string{"a", "b", "c"}}
	err := ValidateStruct(&s)
	if err == nil {
		t.Fatal("expected error")
	}

	var ve Errors
	if !errors.As(err, &ve) {
		t.Fatalf("expected Errors, got %T", err)
	}
	if len(ve) != 5 {
		t.Fatalf("expected 5 field errors, got %d: %v", len(ve), ve)
	}

	msg := err.Error()
	for _, want := range []string{
		"workers must be at least 1",
		"policy must be one of: block reject",
		"channel_id must be a Discord snowflake ID",
		"URL is required",
		"Tags must be at most 2 items",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestIsSnowflake(t *testing.T) {
	tests := map[string]bool{
		"123456789012345678":    true,
		"12345678901234567":     true,
		"123456789012345678901": false,
		"1234":                  false,
		"12345678901234567a":    false,
		"":                      false,
	}
	for in, want := range tests {
		if got := IsSnowflake(in); got != want {
			t.Errorf("IsSnowflake(%q) = %v, want %v", in, got, want)
		}
	}
}
