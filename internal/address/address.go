// Package address validates and classifies Solana account addresses.
package address

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"solana-wallet-inspector/internal/domain"
)

// PublicKeyLength is the size of a decoded Solana public key.
const PublicKeyLength = 32

// Well-known program IDs.
const (
	SystemProgramID   = "11111111111111111111111111111111"
	TokenProgramID    = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022ID       = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PazwnWbVcbB2pV7"
	MetaplexProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
)

// Validate checks that addr is a base58 string decoding to 32 bytes.
// Returns an error wrapping domain.ErrInvalidAddress otherwise.
func Validate(addr string) error {
	if addr == "" {
		return fmt.Errorf("%w: empty", domain.ErrInvalidAddress)
	}
	if len(addr) > 44 {
		return fmt.Errorf("%w: %q too long", domain.ErrInvalidAddress, addr)
	}
	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", domain.ErrInvalidAddress, addr, err)
	}
	if len(decoded) != PublicKeyLength {
		return fmt.Errorf("%w: %q decodes to %d bytes", domain.ErrInvalidAddress, addr, len(decoded))
	}
	return nil
}

// Decode returns the raw public key bytes for addr.
func Decode(addr string) ([]byte, error) {
	if err := Validate(addr); err != nil {
		return nil, err
	}
	return base58.Decode(addr)
}

// Encode returns the base58 form of a 32-byte public key.
func Encode(key []byte) string {
	return base58.Encode(key)
}

// IsOnCurve reports whether the 32-byte key is a valid ed25519 point.
// Keypair-owned wallets are on the curve; program-derived addresses are not.
func IsOnCurve(key []byte) bool {
	if len(key) != PublicKeyLength {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(key)
	return err == nil
}

// IsWallet reports whether addr decodes to an on-curve key.
// Undecodable addresses are not wallets.
func IsWallet(addr string) bool {
	key, err := Decode(addr)
	if err != nil {
		return false
	}
	return IsOnCurve(key)
}

// FindProgramAddress derives a program derived address and its bump seed.
// Bumps are tried from 255 downwards until the hash falls off the curve.
func FindProgramAddress(seeds [][]byte, programID string) (string, byte, error) {
	programBytes, err := Decode(programID)
	if err != nil {
		return "", 0, fmt.Errorf("decode program id: %w", err)
	}

	for bump := 255; bump > 0; bump-- {
		data := make([]byte, 0, 128)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, byte(bump))
		data = append(data, programBytes...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)
		if !IsOnCurve(hash[:]) {
			return base58.Encode(hash[:]), byte(bump), nil
		}
	}

	return "", 0, fmt.Errorf("no viable bump seed")
}
