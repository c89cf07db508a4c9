package solana

import (
	"bytes"
	"encoding/json"
)

// txResult is the jsonParsed shape of a getTransaction result.
type txResult struct {
	Slot      int64  `json:"slot"`
	BlockTime *int64 `json:"blockTime"`
	Meta      *struct {
		Err interface{} `json:"err"`
	} `json:"meta"`
	Transaction struct {
		Signatures []string `json:"signatures"`
		Message    struct {
			Instructions []txInstruction `json:"instructions"`
		} `json:"message"`
	} `json:"transaction"`
}

type txInstruction struct {
	Program   string          `json:"program"`
	ProgramID string          `json:"programId"`
	Parsed    json.RawMessage `json:"parsed"`
	Accounts  []string        `json:"accounts"`
	Data      string          `json:"data"`
}

type parsedBody struct {
	Type string          `json:"type"`
	Info json.RawMessage `json:"info"`
}

// infoFields covers every amount spelling used by the system and token programs.
type infoFields struct {
	Source      string      `json:"source"`
	Destination string      `json:"destination"`
	Authority   string      `json:"authority"`
	Mint        string      `json:"mint"`
	Amount      json.Number `json:"amount"`
	Lamports    json.Number `json:"lamports"`
	Decimals    *int        `json:"decimals"`
	TokenAmount *struct {
		Amount   json.Number `json:"amount"`
		Decimals *int        `json:"decimals"`
	} `json:"tokenAmount"`
}

// decodeParsedTransaction converts a raw getTransaction result.
// Returns nil for null or malformed payloads.
func decodeParsedTransaction(signature string, raw json.RawMessage) *ParsedTransaction {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var res txResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil
	}

	tx := &ParsedTransaction{
		Signature: signature,
		Slot:      res.Slot,
		BlockTime: res.BlockTime,
	}
	if tx.Signature == "" && len(res.Transaction.Signatures) > 0 {
		tx.Signature = res.Transaction.Signatures[0]
	}
	if res.Meta != nil {
		tx.Err = res.Meta.Err
	}

	tx.Instructions = make([]Instruction, 0, len(res.Transaction.Message.Instructions))
	for _, ix := range res.Transaction.Message.Instructions {
		tx.Instructions = append(tx.Instructions, decodeInstruction(ix))
	}
	return tx
}

func decodeInstruction(ix txInstruction) Instruction {
	parsed := bytes.TrimSpace(ix.Parsed)
	if len(parsed) == 0 || bytes.Equal(parsed, []byte("null")) {
		return RawInstruction{
			ProgramID: ix.ProgramID,
			Accounts:  ix.Accounts,
			Data:      ix.Data,
		}
	}

	out := ParsedInstruction{
		ProgramName: ix.Program,
		ProgramID:   ix.ProgramID,
	}

	// Some programs (memo) parse to a bare string.
	if parsed[0] != '{' {
		return out
	}

	var body parsedBody
	if err := json.Unmarshal(parsed, &body); err != nil {
		return out
	}
	out.Type = body.Type
	if len(body.Info) == 0 {
		return out
	}

	var rawInfo map[string]any
	if err := json.Unmarshal(body.Info, &rawInfo); err == nil {
		out.RawInfo = rawInfo
	}

	var fields infoFields
	if err := json.Unmarshal(body.Info, &fields); err != nil {
		// Unexpected field types; keep what the generic map decoded.
		out.Info = infoFromMap(rawInfo)
		return out
	}
	out.Info = fields.transferInfo()
	return out
}

func (f infoFields) transferInfo() TransferInfo {
	info := TransferInfo{
		Source:      f.Source,
		Destination: f.Destination,
		Authority:   f.Authority,
		Mint:        f.Mint,
		Decimals:    f.Decimals,
	}

	switch {
	case f.Amount != "":
		info.Amount = f.Amount.String()
	case f.Lamports != "":
		info.Amount = f.Lamports.String()
	case f.TokenAmount != nil && f.TokenAmount.Amount != "":
		info.Amount = f.TokenAmount.Amount.String()
	}

	if info.Decimals == nil && f.TokenAmount != nil {
		info.Decimals = f.TokenAmount.Decimals
	}
	return info
}

func infoFromMap(m map[string]any) TransferInfo {
	str := func(k string) string {
		if v, ok := m[k].(string); ok {
			return v
		}
		return ""
	}
	return TransferInfo{
		Source:      str("source"),
		Destination: str("destination"),
		Authority:   str("authority"),
		Mint:        str("mint"),
	}
}
