package utils

import (
	"strings"
	"testing"
	"time"
)

func TestFileWithLineNum(t *testing.T) {
	if got := FileWithLineNum(); !strings.HasSuffix(strings.Split(got, ":")[0], "utils_test.go") {
		t.Errorf("expected to point at the test file, got %v", got)
	}
}

func TestToString(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		value interface{}
		want  string
	}{
		{nil, ""},
		{"abc", "abc"},
		{[]byte("abc"), "abc"},
		{int(7), "7"},
		{int64(7), "7"},
		{uint32(7), "7"},
		{7.5, "7.5"},
		{true, "true"},
		{now, "2024-03-01T10:00:00Z"},
	}

	for _, tt := range tests {
		if got := ToString(tt.value); got != tt.want {
			t.Errorf("ToString(%#v) = %v, want %v", tt.value, got, tt.want)
		}
	}

	// int and int64 of the same value must collapse to one key
	if ToString(int(42)) != ToString(int64(42)) {
		t.Errorf("int and int64 should stringify identically")
	}
}

func TestContains(t *testing.T) {
	elems := []string{"active", "recent"}
	if !Contains(elems, "active") {
		t.Errorf("expected %v to contain active", elems)
	}
	if Contains(elems, "archived") {
		t.Errorf("expected %v not to contain archived", elems)
	}
	if Contains(nil, "active") {
		t.Errorf("expected nil slice to contain nothing")
	}
}

func TestIsValidDBNameChar(t *testing.T) {
	for _, c := range "abc_09.*$@" {
		if IsValidDBNameChar(c) {
			t.Errorf("%c should be a valid db name char", c)
		}
	}
	for _, c := range " ,?()`" {
		if !IsValidDBNameChar(c) {
			t.Errorf("%c should not be a valid db name char", c)
		}
	}
}
