package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTransferID computes a deterministic transfer id using SHA256.
// Formula: SHA256(from|to|asset|tx_signature)
// Amount and timestamp are not part of the key.
// Returns hex-encoded hash (64 characters).
func ComputeTransferID(
	from string,
	to string,
	asset string,
	txSignature string,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s",
		from,
		to,
		asset,
		txSignature,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeRunKey computes a short deterministic key for a trace request,
// used to label archived runs of the same origin and depth.
// Formula: SHA256(origin|max_depth), first 16 hex characters.
func ComputeRunKey(origin string, maxDepth int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", origin, maxDepth)))
	return hex.EncodeToString(hash[:])[:16]
}
