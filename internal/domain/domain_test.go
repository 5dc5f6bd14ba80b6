package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseTrendDefaultsToNone(t *testing.T) {
	if got := ParseTrend("Bullish"); got != TrendBullish {
		t.Fatalf("expected Bullish, got %s", got)
	}
	if got := ParseTrend(" Bearish "); got != TrendBearish {
		t.Fatalf("expected Bearish, got %s", got)
	}
	if got := ParseTrend("sideways"); got != TrendNone {
		t.Fatalf("expected None for unknown value, got %s", got)
	}
}

func TestFailureReasons(t *testing.T) {
	cases := map[FailureKind]string{
		FailureOwnerNotAllowed:        "owner-not-allowed",
		FailureInsufficientFunds:      "insufficient-funds",
		FailureSlippageExceededInput:  "slippage-exceeded-input",
		FailureSlippageExceededOutput: "slippage-exceeded-output",
		FailureUnknownInstruction:     "unknown-instruction-error",
		FailureUnclassified:           "unclassified-error",
		FailureConfirmationTimeout:    "confirmation-timeout",
		FailureBalanceUnavailable:     "balance-unavailable",
		FailureKind(999):              "unclassified-error",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Fatalf("kind %d: expected %q, got %q", kind, want, got)
		}
	}
}

func TestFailureJSONUsesReasonString(t *testing.T) {
	res := SwapResult{Failure: &Failure{Kind: FailureSlippageExceededInput, Code: 6002}}
	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(raw), `"reason":"slippage-exceeded-input"`) {
		t.Fatalf("unexpected payload: %s", raw)
	}
}

func TestInstructionSetOrderedSkipsMissingCleanup(t *testing.T) {
	set := InstructionSet{
		ComputeBudget: []RawInstruction{{ProgramID: "cb"}},
		Setup:         []RawInstruction{{ProgramID: "setup"}},
		Swap:          RawInstruction{ProgramID: "swap"},
	}
	got := set.Ordered()
	if len(got) != 3 || got[2].ProgramID != "swap" {
		t.Fatalf("unexpected order: %+v", got)
	}

	set.Cleanup = &RawInstruction{ProgramID: "cleanup"}
	if got := set.Ordered(); len(got) != 4 || got[3].ProgramID != "cleanup" {
		t.Fatalf("expected cleanup last, got %+v", got)
	}
}

func TestLookupCurrency(t *testing.T) {
	c, ok := LookupCurrency("sol")
	if !ok || c.Mint != WrappedSOLMint || c.Decimals != 9 {
		t.Fatalf("unexpected currency: %+v ok=%v", c, ok)
	}
	if _, ok := LookupCurrency("DOGE"); ok {
		t.Fatal("expected unknown currency")
	}
}
