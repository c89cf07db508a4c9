package solana

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRateLimited is returned (wrapped) when the RPC provider throttles requests,
// either with HTTP 429 or a JSON-RPC rate-limit error.
var ErrRateLimited = errors.New("rate limited")

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Unwrap maps provider rate-limit errors onto ErrRateLimited.
func (e *rpcError) Unwrap() error {
	if e.isRateLimit() {
		return ErrRateLimited
	}
	return nil
}

func (e *rpcError) isRateLimit() bool {
	if e.Code == 429 || e.Code == -32429 {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "/second")
}
