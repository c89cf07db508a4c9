package stub

import (
	"bytes"
	"strconv"

	"github.com/mr-tron/base58"

	"solana-wallet-inspector/internal/solana"
)

const (
	systemProgramID = "11111111111111111111111111111111"
	tokenProgramID  = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
)

// Address returns a deterministic valid base58 address built from n repeated 32 times.
func Address(n byte) string {
	return base58.Encode(bytes.Repeat([]byte{n}, 32))
}

// Tx builds a parsed transaction. blockTime 0 leaves the block time absent.
func Tx(signature string, blockTime int64, ixs ...solana.Instruction) *solana.ParsedTransaction {
	tx := &solana.ParsedTransaction{
		Signature:    signature,
		Instructions: ixs,
	}
	if blockTime != 0 {
		bt := blockTime
		tx.BlockTime = &bt
	}
	return tx
}

// SystemTransfer builds a native transfer of lamports.
func SystemTransfer(from, to string, lamports uint64) solana.ParsedInstruction {
	return solana.ParsedInstruction{
		ProgramName: "system",
		ProgramID:   systemProgramID,
		Type:        "transfer",
		Info: solana.TransferInfo{
			Source:      from,
			Destination: to,
			Amount:      strconv.FormatUint(lamports, 10),
		},
	}
}

// TokenTransfer builds an spl-token transferChecked of a raw amount.
func TokenTransfer(from, to, mint string, amount uint64, decimals int) solana.ParsedInstruction {
	d := decimals
	return solana.ParsedInstruction{
		ProgramName: "spl-token",
		ProgramID:   tokenProgramID,
		Type:        "transferChecked",
		Info: solana.TransferInfo{
			Source:      from,
			Destination: to,
			Authority:   from,
			Mint:        mint,
			Amount:      strconv.FormatUint(amount, 10),
			Decimals:    &d,
		},
	}
}

// Raw builds an instruction for a program the node did not decode.
func Raw(programID string, accounts ...string) solana.RawInstruction {
	return solana.RawInstruction{ProgramID: programID, Accounts: accounts}
}
