package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractUsername(t *testing.T) {
	tests := []struct {
		name     string
		memo     string
		prefix   string
		wantUser string
		wantOK   bool
	}{
		{"dot separator, mixed case prefix", "VIETOOL.alice99 thank you", "vietool", "alice99", true},
		{"no separator, upper case token", "vietoolBOB2 nice", "vietool", "bob2", true},
		{"space separator", "chuyen tien vietool carol", "vietool", "carol", true},
		{"prefix in middle of memo", "MBVCB.123.vietool dave.CT tu 0123", "vietool", "dave", true},
		{"prefix configured upper case", "vietool erin", "VIETOOL", "erin", true},
		{"no prefix", "thanh toan hoa don", "vietool", "", false},
		{"prefix at end", "payment vietool", "vietool", "", false},
		{"only one separator skipped", "vietool  frank", "vietool", "", false},
		{"dot then space", "vietool. frank", "vietool", "", false},
		{"token stops at punctuation", "vietool grace-01", "vietool", "grace", true},
		{"token stops at non-ascii", "vietool hàn", "vietool", "h", true},
		{"first occurrence only", "vietool- vietool heidi", "vietool", "", false},
		{"first occurrence wins", "vietool ivan vietool judy", "vietool", "ivan", true},
		{"tab separator", "vietool\tkim", "vietool", "kim", true},
		{"non-breaking space separator", "vietool\u00a0bob", "vietool", "bob", true},
		{"ideographic space separator", "vietool\u3000bob", "vietool", "bob", true},
		{"two non-breaking spaces", "vietool\u00a0\u00a0bob", "vietool", "", false},
		{"empty memo", "", "vietool", "", false},
		{"empty prefix", "vietool bob", "", "", false},
		{"digits only", "vietool 0987", "vietool", "0987", true},
		{"non-ascii before prefix", "Chuyển khoản VIETOOL lan", "vietool", "lan", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractUsername(tt.memo, tt.prefix)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantUser, got)
		})
	}
}

func TestExtractUsername_RepeatedPrefix(t *testing.T) {
	got, ok := ExtractUsername("vietool vietool bob", "vietool")
	assert.True(t, ok)
	assert.Equal(t, "vietool", got)
}
