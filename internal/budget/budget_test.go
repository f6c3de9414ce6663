package budget

import (
	"strings"
	"testing"
)

func TestEstimateTokensFromChars(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, 0},
		{1, 1},
		{4, 1},
		{5, 2},
		{400, 100},
	}
	for _, c := range cases {
		got := EstimateTokensFromChars(c.in)
		if got != c.want {
			t.Fatalf("EstimateTokensFromChars(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestModelContextTokens(t *testing.T) {
	if ModelContextTokens("") != 8192 {
		t.Fatal("empty model should default to 8192")
	}
	if ModelContextTokens("GPT-4o") < 100_000 {
		t.Fatal("case-insensitive match for gpt-4o should be ~128k")
	}
	if ModelContextTokens("mystery-512k") != 512_000 {
		t.Fatal("numeric suffix heuristic 512k should map to 512k tokens")
	}
}

func TestRemainingContext_ClampsAtZero(t *testing.T) {
	model := "gpt-4o"
	if RemainingContext(model, 2000, 1000) <= 0 {
		t.Fatal("small prompt should leave room")
	}
	if got := RemainingContext(model, 1, ModelContextTokens(model)); got != 0 {
		t.Fatalf("remaining should clamp at 0 on overflow, got %d", got)
	}
}

func TestMaxInputChars(t *testing.T) {
	if got := MaxInputChars("gpt-4o", "system prompt", 4000, 15000); got != 15000 {
		t.Fatalf("expected cap to apply, got %d", got)
	}
	// 4096 window - 512 headroom - 2000 output leaves a small budget
	small := MaxInputChars("gpt-oss-20b", "", 2000, 15000)
	if small <= 0 || small >= 15000 {
		t.Fatalf("expected small budget under the cap, got %d", small)
	}
	if got := MaxInputChars("gpt-oss-20b", "", 10_000, 0); got != 0 {
		t.Fatalf("expected zero when output reservation exceeds window, got %d", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("ééééé", 3); got != "ééé" {
		t.Fatalf("rune-safe cut failed: %q", got)
	}
	s := strings.Repeat("a", 95) + "\n" + strings.Repeat("b", 20)
	if got := Truncate(s, 100); got != strings.Repeat("a", 95) {
		t.Fatalf("expected cut at line break, got %q", got)
	}
	if got := Truncate("abc", 0); got != "" {
		t.Fatalf("got %q", got)
	}
}
