package utils_test

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/odap/internal/utils"
)

func TestCountTokens(t *testing.T) {
	cases := []struct {
		name string
		in   string
		min  int
		max  int
	}{
		{"empty", "", 0, 0},
		{"space only", "   ", 1, 1},
		{"simple", "hello world", 2, 3},
		{"long", strings.Repeat("a", 4000), 1000, 1000},
		{"short words", strings.Repeat("a ", 100), 100, 100},
	}
	for _, c := range cases {
		if got := utils.CountTokens(c.in); got < c.min || got > c.max {
			t.Errorf("%s: got %d, want [%d,%d]", c.name, got, c.min, c.max)
		}
	}
}

func TestTokenBreakdown(t *testing.T) {
	got := utils.TokenBreakdown(map[string]string{"preview": "a b c", "question": ""})
	if got["preview"] != 3 || got["question"] != 0 {
		t.Fatalf("unexpected breakdown: %v", got)
	}
}
