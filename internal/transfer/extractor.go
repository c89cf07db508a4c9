// Package transfer normalizes transfer instructions of parsed transactions into TransferEvents.
package transfer

import (
	"time"

	"github.com/shopspring/decimal"

	"solana-wallet-inspector/internal/address"
	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/idhash"
	"solana-wallet-inspector/internal/solana"
)

// Recognized instruction types.
const (
	TypeTransfer        = "transfer"
	TypeTransferChecked = "transferChecked"
)

// IsTransfer reports whether ix is a recognized transfer operation.
func IsTransfer(ix solana.ParsedInstruction) bool {
	return ix.Type == TypeTransfer || ix.Type == TypeTransferChecked
}

// Asset resolves the asset moved by ix: the native sentinel for the system program
// (regardless of any mint field), else the mint, else UnknownAsset.
func Asset(ix solana.ParsedInstruction) string {
	if ix.ProgramID == address.SystemProgramID {
		return domain.NativeAsset
	}
	if ix.Info.Mint != "" {
		return ix.Info.Mint
	}
	return domain.UnknownAsset
}

// Amount converts the raw integer amount to a decimal-normalized quantity.
// Decimals default to the native 9 when the instruction omits them.
// Unparsable amounts normalize to 0.
func Amount(info solana.TransferInfo) float64 {
	if info.Amount == "" {
		return 0
	}
	raw, err := decimal.NewFromString(info.Amount)
	if err != nil {
		return 0
	}
	decimals := solana.NativeDecimals
	if info.Decimals != nil {
		decimals = *info.Decimals
	}
	return raw.Shift(int32(-decimals)).InexactFloat64()
}

// Timestamp converts a block time to a UTC instant; missing block time is the Unix epoch.
func Timestamp(tx *solana.ParsedTransaction) time.Time {
	return time.Unix(tx.BlockTimeOrZero(), 0).UTC()
}

// NewEvent builds the TransferEvent for a transfer instruction of tx.
func NewEvent(tx *solana.ParsedTransaction, ix solana.ParsedInstruction) domain.TransferEvent {
	asset := Asset(ix)
	return domain.TransferEvent{
		ID:        idhash.ComputeTransferID(ix.Info.Source, ix.Info.Destination, asset, tx.Signature),
		From:      ix.Info.Source,
		To:        ix.Info.Destination,
		Asset:     asset,
		Amount:    Amount(ix.Info),
		Timestamp: Timestamp(tx),
		Signature: tx.Signature,
	}
}

// Extract returns every recognized transfer with a destination, in instruction order.
// A nil transaction yields nothing.
func Extract(tx *solana.ParsedTransaction) []domain.TransferEvent {
	return filter(tx, func(info solana.TransferInfo) bool {
		return info.Destination != ""
	})
}

// Outbound returns the transfers whose source is addr, in instruction order.
func Outbound(tx *solana.ParsedTransaction, addr string) []domain.TransferEvent {
	return filter(tx, func(info solana.TransferInfo) bool {
		return info.Source == addr && info.Destination != ""
	})
}

// Touching returns the transfers sent from or to addr, in instruction order.
func Touching(tx *solana.ParsedTransaction, addr string) []domain.TransferEvent {
	return filter(tx, func(info solana.TransferInfo) bool {
		return info.Destination != "" && (info.Source == addr || info.Destination == addr)
	})
}

func filter(tx *solana.ParsedTransaction, keep func(solana.TransferInfo) bool) []domain.TransferEvent {
	if tx == nil {
		return nil
	}

	var events []domain.TransferEvent
	for _, instr := range tx.Instructions {
		switch ix := instr.(type) {
		case solana.ParsedInstruction:
			if !IsTransfer(ix) || !keep(ix.Info) {
				continue
			}
			events = append(events, NewEvent(tx, ix))
		case solana.RawInstruction:
			// Undecoded programs carry no transfer info.
		}
	}
	return events
}

// Endpoints returns source/destination pairs of every parsed instruction carrying both,
// whatever its type. Used by the cluster aggregator.
func Endpoints(tx *solana.ParsedTransaction) [][2]string {
	if tx == nil {
		return nil
	}

	var pairs [][2]string
	for _, instr := range tx.Instructions {
		switch ix := instr.(type) {
		case solana.ParsedInstruction:
			if ix.Info.HasEndpoints() {
				pairs = append(pairs, [2]string{ix.Info.Source, ix.Info.Destination})
			}
		case solana.RawInstruction:
		}
	}
	return pairs
}
