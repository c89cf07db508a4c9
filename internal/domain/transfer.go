package domain

import "time"

// Asset sentinels used when a transfer does not name a mint.
const (
	// NativeAsset marks transfers of the chain's native asset (lamports).
	NativeAsset = "SOL"
	// UnknownAsset marks token transfers whose mint is not present in the instruction.
	UnknownAsset = "UNKNOWN"
)

// TransferEvent represents one observed asset movement.
// ID is derived from (From, To, Asset, Signature) only, so the same edge seen
// in two fetch windows collapses to one event.
type TransferEvent struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Asset     string    `json:"token"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"date"`
	Signature string    `json:"signature"`
}

// IsNative reports whether the transfer moved the native asset.
func (e TransferEvent) IsNative() bool {
	return e.Asset == NativeAsset
}

// TraceResult is an ordered list of transfers in discovery (pre-order) order.
type TraceResult []TransferEvent

// Addresses returns every distinct address in the result, in first-seen order.
func (r TraceResult) Addresses() []string {
	seen := make(map[string]struct{}, len(r)*2)
	out := make([]string, 0, len(r)*2)
	for _, e := range r {
		for _, addr := range [2]string{e.From, e.To} {
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			out = append(out, addr)
		}
	}
	return out
}

// TraceRun is an archived trace: the parameters and the events it produced.
type TraceRun struct {
	ID        string      `json:"id"`
	Origin    string      `json:"origin"`
	MaxDepth  int         `json:"maxDepth"`
	CreatedAt int64       `json:"createdAt"` // ms
	Events    TraceResult `json:"events"`
}
