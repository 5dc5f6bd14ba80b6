package domain

import (
	"encoding/json"
	"fmt"
)

type SwapMode string

const (
	SwapModeExactIn  SwapMode = "ExactIn"
	SwapModeExactOut SwapMode = "ExactOut"
)

// SwapRequest describes a single trade attempt. Amount is in base units of
// the input mint.
type SwapRequest struct {
	PayerSecret string
	PayerPublic string
	InputMint   string
	OutputMint  string
	Amount      uint64
	Mode        SwapMode
	SlippageBps int
	UseRelay    bool
}

type SwapResult struct {
	AttemptID   string   `json:"attempt_id"`
	Confirmed   bool     `json:"confirmed"`
	Signature   string   `json:"signature,omitempty"`
	OutAmount   uint64   `json:"out_amount"`
	ExplorerURL string   `json:"explorer_url,omitempty"`
	Failure     *Failure `json:"failure,omitempty"`
}

func ExplorerURL(signature string) string {
	if signature == "" {
		return ""
	}
	return "https://solscan.io/tx/" + signature
}

// Route is a priced quote. Raw is forwarded verbatim when requesting
// instructions.
type Route struct {
	InputMint  string
	OutputMint string
	InAmount   uint64
	OutAmount  uint64
	Raw        json.RawMessage
}

type RawAccount struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

type RawInstruction struct {
	ProgramID string       `json:"programId"`
	Accounts  []RawAccount `json:"accounts"`
	Data      string       `json:"data"`
}

type InstructionSet struct {
	ComputeBudget    []RawInstruction
	Setup            []RawInstruction
	Swap             RawInstruction
	Cleanup          *RawInstruction
	LookupTableAddrs []string
}

// Ordered returns the instructions in execution order.
func (s InstructionSet) Ordered() []RawInstruction {
	out := make([]RawInstruction, 0, len(s.ComputeBudget)+len(s.Setup)+2)
	out = append(out, s.ComputeBudget...)
	out = append(out, s.Setup...)
	out = append(out, s.Swap)
	if s.Cleanup != nil {
		out = append(out, *s.Cleanup)
	}
	return out
}

func (r SwapResult) String() string {
	if r.Confirmed {
		return fmt.Sprintf("confirmed %s", r.Signature)
	}
	if r.Failure != nil {
		return fmt.Sprintf("failed: %s", r.Failure.Reason())
	}
	return "failed"
}
