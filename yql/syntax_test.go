package yql

import (
	"testing"

	"github.com/poiesic/yqlguard/core"
	"github.com/stretchr/testify/assert"
)

func TestValidateSyntax(t *testing.T) {
	tests := []struct {
		name  string
		query string
		valid bool
	}{
		{"minimal", "select * from sources file", true},
		{"nested", "select * from sources file where ((a contains 'x') or ({targetHits:1}userInput(@q)))", true},
		{"paren in literal", "select * from sources file where a contains ')('", true},
		{"escaped quote", `select * from sources file where a contains 'o\'hare'`, true},
		{"escaped backslash", `select * from sources file where a contains 'x\\'`, true},
		{"missing select", "from sources file", false},
		{"missing sources", "select * from file", false},
		{"unclosed paren", "select * from sources file where (a contains 'x'", false},
		{"extra close", "select * from sources file where a contains 'x')", false},
		{"mismatched", "select * from sources file where ({a)}", false},
		{"unterminated literal", "select * from sources file where a contains 'x", false},
		{"escaped terminator", `select * from sources file where a contains 'x\'`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSyntax(tt.query)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, core.ErrSyntax)
			}
		})
	}
}
