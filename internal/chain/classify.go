package chain

import (
	"encoding/json"
	"fmt"
	"math"

	"trendbot/internal/domain"
)

const (
	codeInsufficientFunds = 1
	codeSlippageInput     = 6002
	codeSlippageOutput    = 6003
)

// ClassifyTxError maps the err field of a signature status into the closed
// failure taxonomy. A nil error yields nil.
func ClassifyTxError(raw interface{}) *domain.Failure {
	if raw == nil {
		return nil
	}
	detail := describeTxError(raw)

	obj, ok := raw.(map[string]interface{})
	if !ok {
		return &domain.Failure{Kind: domain.FailureUnclassified, Detail: detail}
	}
	ixErr, ok := obj["InstructionError"].([]interface{})
	if !ok || len(ixErr) < 2 {
		return &domain.Failure{Kind: domain.FailureUnclassified, Detail: detail}
	}

	switch inner := ixErr[1].(type) {
	case string:
		if inner == "IllegalOwner" {
			return &domain.Failure{Kind: domain.FailureOwnerNotAllowed, Detail: detail}
		}
	case map[string]interface{}:
		custom, present := inner["Custom"]
		if !present {
			break
		}
		code, ok := customCode(custom)
		if !ok {
			return &domain.Failure{Kind: domain.FailureUnknownInstruction, Detail: detail}
		}
		return &domain.Failure{Kind: kindForCustomCode(code), Code: code, Detail: detail}
	}
	return &domain.Failure{Kind: domain.FailureUnclassified, Detail: detail}
}

func kindForCustomCode(code int64) domain.FailureKind {
	switch code {
	case codeInsufficientFunds:
		return domain.FailureInsufficientFunds
	case codeSlippageInput:
		return domain.FailureSlippageExceededInput
	case codeSlippageOutput:
		return domain.FailureSlippageExceededOutput
	default:
		return domain.FailureUnknownInstruction
	}
}

func customCode(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	}
	return 0, false
}

func describeTxError(raw interface{}) string {
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprintf("%v", raw)
	}
	return string(b)
}
