package util

import "testing"

func TestValidTicker(t *testing.T) {
	cases := map[string]bool{
		"AAPL":          true,
		"brk.b":         true,
		" MSFT ":        true,
		"BF-B":          true,
		"":              false,
		"A$B; DROP":     false,
		"../etc":        false,
		".AAPL":         false,
		"ABCDEFGHIJKLM": false,
	}
	for in, want := range cases {
		if got := ValidTicker(in); got != want {
			t.Fatalf("ValidTicker(%q) = %v, want %v", in, got, want)
		}
	}
}
