package models

import "testing"

func TestKeyPrefix(t *testing.T) {
	tests := map[string]string{
		"Website Redesign":    "WRE",
		"Mobile App Backend":  "MAB",
		"api":                 "API",
		"Go":                  "GOX",
		"Café Réseau":         "CRA",
		"  --  ":              "TKT",
		"":                    "TKT",
		"Q3 Launch & Release": "QLR",
	}
	for name, want := range tests {
		if got := KeyPrefix(name); got != want {
			t.Fatalf("KeyPrefix(%q): expected %q, got %q", name, want, got)
		}
	}
}

func TestFormatTicketKey(t *testing.T) {
	got, err := FormatTicketKey("WEB", 7)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if got != "WEB-007" {
		t.Fatalf("expected WEB-007, got %q", got)
	}
	if _, err := FormatTicketKey("WEB", TicketKeyMaxNumber+1); err == nil {
		t.Fatal("expected overflow error")
	}
}
