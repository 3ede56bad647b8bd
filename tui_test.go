package main

import (
	"reflect"
	"testing"
)

func TestWrapText(t *testing.T) {
	for _, tt := range []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{"empty", "", 10, []string{""}},
		{"fits", "hello", 10, []string{"hello"}},
		{"breaks at space", "hello world again", 11, []string{"hello world", "again"}},
		{"long word hard break", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := wrapText(tt.text, tt.width); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("wrapText(%q, %d) = %v, want %v", tt.text, tt.width, got, tt.want)
			}
		})
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("1234567890abcdef"); got != "12345678" {
		t.Errorf("shortID = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID = %q", got)
	}
}
