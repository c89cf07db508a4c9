package solana

// LamportsPerSOL is the native asset scale (9 decimals).
const LamportsPerSOL = 1_000_000_000

// NativeDecimals is the decimal count of the native asset.
const NativeDecimals = 9

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature          string      `json:"signature"`
	Slot               int64       `json:"slot"`
	BlockTime          *int64      `json:"blockTime"`
	Err                interface{} `json:"err"`
	ConfirmationStatus string      `json:"confirmationStatus"`
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// ParsedTransaction is a transaction fetched with jsonParsed encoding.
// Only top-level message instructions are kept.
type ParsedTransaction struct {
	Signature    string
	Slot         int64
	BlockTime    *int64 // Unix seconds, nil when the node does not know it
	Err          interface{}
	Instructions []Instruction
}

// BlockTimeOrZero returns the block time or 0 when absent.
func (tx *ParsedTransaction) BlockTimeOrZero() int64 {
	if tx == nil || tx.BlockTime == nil {
		return 0
	}
	return *tx.BlockTime
}

// Instruction is either a ParsedInstruction or a RawInstruction.
type Instruction interface {
	// Program returns the program ID the instruction invokes.
	Program() string
	isInstruction()
}

// ParsedInstruction is an instruction the node decoded for a known program.
type ParsedInstruction struct {
	ProgramName string // e.g. "system", "spl-token"
	ProgramID   string
	Type        string // e.g. "transfer", "transferChecked"
	Info        TransferInfo
	RawInfo     map[string]any
}

// Program returns the program ID.
func (p ParsedInstruction) Program() string { return p.ProgramID }

func (ParsedInstruction) isInstruction() {}

// RawInstruction is an instruction for a program the node cannot decode.
type RawInstruction struct {
	ProgramID string
	Accounts  []string
	Data      string // base58
}

// Program returns the program ID.
func (r RawInstruction) Program() string { return r.ProgramID }

func (RawInstruction) isInstruction() {}

// TransferInfo holds the transfer-relevant fields of a parsed instruction's info.
// Every field is optional; absent values are zero.
type TransferInfo struct {
	Source      string
	Destination string
	Authority   string
	Mint        string
	Amount      string // raw integer amount in base units
	Decimals    *int
}

// HasEndpoints reports whether both source and destination are present.
func (i TransferInfo) HasEndpoints() bool {
	return i.Source != "" && i.Destination != ""
}

// TokenAccount is a jsonParsed SPL token account.
type TokenAccount struct {
	Pubkey   string
	Mint     string
	Owner    string
	Amount   string  // raw base units
	Decimals int     // mint decimals
	UIAmount float64 // amount adjusted for decimals
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}
