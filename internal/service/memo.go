package service

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ExtractUsername finds the first case-insensitive occurrence of prefix in
// memo and returns the lower-cased run of ASCII letters and digits that
// follows it. At most one (Unicode) whitespace or '.' separator is skipped after the
// prefix. ok is false when the prefix is absent or no token follows it.
//
// Only the first occurrence is considered, so "vietool vietool bob" yields
// "vietool" and "vietool- vietool bob" yields nothing.
func ExtractUsername(memo, prefix string) (username string, ok bool) {
	if prefix == "" {
		return "", false
	}

	idx := indexFold(memo, prefix)
	if idx < 0 {
		return "", false
	}

	rest := memo[idx+len(prefix):]
	if r, size := utf8.DecodeRuneInString(rest); size > 0 && isSeparator(r) {
		rest = rest[size:]
	}

	end := 0
	for end < len(rest) && isASCIIAlnum(rest[end]) {
		end++
	}
	if end == 0 {
		return "", false
	}
	return strings.ToLower(rest[:end]), true
}

// indexFold is strings.Index with ASCII case folding. Non-ASCII bytes must
// match exactly, which keeps byte offsets valid for the slice that follows.
func indexFold(s, substr string) int {
	n := len(substr)
	for i := 0; i+n <= len(s); i++ {
		if equalFoldASCII(s[i:i+n], substr) {
			return i
		}
	}
	return -1
}

func equalFoldASCII(a, b string) bool {
	for i := 0; i < len(a); i++ {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// isSeparator accepts '.' and any Unicode space, including the NBSP that
// banking apps paste into memos.
func isSeparator(r rune) bool {
	return r == '.' || unicode.IsSpace(r)
}

func isASCIIAlnum(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
