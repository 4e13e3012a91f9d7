// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.
package i18n

import (
	"testing"
)

func TestInitAndAvailableLocales(t *testing.T) {
	Init("en")
	if GetLang() != "en" {
		t.Fatalf("expected lang 'en', got %q", GetLang())
	}

	av := GetAvailableLocales()
	for _, k := range []string{"en", "de"} {
		if _, ok := av[k]; !ok {
			t.Fatalf("expected available locale %q to be present", k)
		}
	}
	if av["de"] != "Deutsch" {
		t.Fatalf("unexpected display name for de: %q", av["de"])
	}
}

func TestT_BasicAndFormatting(t *testing.T) {
	Init("en")
	t.Cleanup(func() { Init("en") })

	if got := T("cli.history.empty"); got != "No ledger entries." {
		t.Fatalf("unexpected translation: %q", got)
	}

	got := T("cli.create_user.done", "ALICE")
	if got != "User ALICE created" {
		t.Fatalf("unexpected formatted translation: %q", got)
	}

	SetLang("de")
	if GetLang() != "de" {
		t.Fatalf("expected lang 'de', got %q", GetLang())
	}
	if got := T("cli.create_user.done", "ALICE"); got != "Benutzer ALICE angelegt" {
		t.Fatalf("expected German translation, got %q", got)
	}
}

func TestT_UnknownIDFallsBack(t *testing.T) {
	Init("fr")
	t.Cleanup(func() { Init("en") })

	if got := T("does.not.exist"); got != "does.not.exist" {
		t.Fatalf("expected the ID back, got %q", got)
	}
	// No French locale: English is used.
	if got := T("cli.history.empty"); got != "No ledger entries." {
		t.Fatalf("expected English fallback, got %q", got)
	}
}
