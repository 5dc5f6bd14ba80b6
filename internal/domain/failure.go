package domain

import (
	"encoding/json"
	"fmt"
)

// FailureKind is the closed set of reasons a trade attempt can fail with.
type FailureKind int

const (
	FailureUnclassified FailureKind = iota
	FailureInsufficientData
	FailureNoRoute
	FailureQuoteUnavailable
	FailureBuildFailure
	FailureRelayRejected
	FailureConfirmationTimeout
	FailureStatusUnavailable
	FailureOwnerNotAllowed
	FailureInsufficientFunds
	FailureSlippageExceededInput
	FailureSlippageExceededOutput
	FailureUnknownInstruction
	FailureWalletNotFound
	FailureNoBalance
	FailureInvalidRequest
	FailureBalanceUnavailable
)

func (k FailureKind) String() string {
	switch k {
	case FailureInsufficientData:
		return "insufficient-data"
	case FailureNoRoute:
		return "no-route"
	case FailureQuoteUnavailable:
		return "quote-unavailable"
	case FailureBuildFailure:
		return "build-failure"
	case FailureRelayRejected:
		return "relay-rejected"
	case FailureConfirmationTimeout:
		return "confirmation-timeout"
	case FailureStatusUnavailable:
		return "status-unavailable"
	case FailureOwnerNotAllowed:
		return "owner-not-allowed"
	case FailureInsufficientFunds:
		return "insufficient-funds"
	case FailureSlippageExceededInput:
		return "slippage-exceeded-input"
	case FailureSlippageExceededOutput:
		return "slippage-exceeded-output"
	case FailureUnknownInstruction:
		return "unknown-instruction-error"
	case FailureWalletNotFound:
		return "wallet-not-found"
	case FailureNoBalance:
		return "no-balance"
	case FailureInvalidRequest:
		return "invalid-request"
	case FailureBalanceUnavailable:
		return "balance-unavailable"
	default:
		return "unclassified-error"
	}
}

// OnChain reports whether the failure was observed in a landed transaction.
func (k FailureKind) OnChain() bool {
	switch k {
	case FailureOwnerNotAllowed, FailureInsufficientFunds, FailureSlippageExceededInput,
		FailureSlippageExceededOutput, FailureUnknownInstruction, FailureUnclassified:
		return true
	}
	return false
}

// Failure carries a FailureKind plus the program error code (when one was
// decoded) and a detail string for logs.
type Failure struct {
	Kind   FailureKind `json:"-"`
	Code   int64       `json:"code,omitempty"`
	Detail string      `json:"detail,omitempty"`
}

func NewFailure(kind FailureKind, detail string) *Failure {
	return &Failure{Kind: kind, Detail: detail}
}

func (f *Failure) Reason() string {
	if f == nil {
		return ""
	}
	return f.Kind.String()
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return f.Kind.String()
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

func (f Failure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Reason string `json:"reason"`
		Code   int64  `json:"code,omitempty"`
		Detail string `json:"detail,omitempty"`
	}{Reason: f.Kind.String(), Code: f.Code, Detail: f.Detail})
}
