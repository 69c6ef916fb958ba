package core

import (
	"strings"
	"testing"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "gmail", want: "gmail"},
		{name: "single quote", in: "o'brien", want: `o\'brien`},
		{name: "backslash", in: `a\b`, want: `a\\b`},
		{name: "backslash before quote", in: `\'`, want: `\\\'`},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Escape(tt.in); got != tt.want {
				t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"it's",
		`C:\temp\`,
		`\'`,
		`'); drop`,
		`''\\''`,
		"trailing\\",
		"üñïçødé 'quoted'",
	}

	for _, in := range inputs {
		escaped := Escape(in)
		if got := Unescape(escaped); got != in {
			t.Errorf("Unescape(Escape(%q)) = %q", in, got)
		}
	}
}

// An escaped value must never contain a quote that terminates the literal.
func TestQuoteCannotTerminateEarly(t *testing.T) {
	inputs := []string{`'`, `\'`, `a' or owner contains 'x`, `\\'`, `'\`}

	for _, in := range inputs {
		quoted := Quote(in)
		body := quoted[1 : len(quoted)-1]
		for i := 0; i < len(body); i++ {
			if body[i] == '\\' {
				i++
				continue
			}
			if body[i] == '\'' {
				t.Fatalf("Quote(%q) = %q has an unescaped quote at %d", in, quoted, i)
			}
		}
		trailing := len(body) - len(strings.TrimRight(body, `\`))
		if trailing%2 != 0 {
			t.Errorf("Quote(%q) = %q escapes its closing quote", in, quoted)
		}
	}
}
