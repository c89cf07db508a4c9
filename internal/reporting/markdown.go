package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *WalletReport) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Wallet Report\n\n")
	sb.WriteString(fmt.Sprintf("Wallet: `%s`\n\n", r.Wallet))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Balances
	sb.WriteString("## Balances\n\n")
	if r.Balances != nil {
		sb.WriteString(fmt.Sprintf("Native balance: %s SOL\n\n", formatAmount(r.Balances.NativeBalance)))
		if len(r.Balances.TokenAccounts) > 0 {
			sb.WriteString("| Mint | Symbol | Name | Amount |\n")
			sb.WriteString("|------|--------|------|--------|\n")
			for _, t := range r.Balances.TokenAccounts {
				sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
					t.Mint, t.Symbol, t.Name, formatAmount(t.Amount)))
			}
		} else {
			sb.WriteString("No token accounts.\n")
		}
	} else {
		sb.WriteString("Balances not available.\n")
	}
	sb.WriteString("\n")

	// Memecoins
	sb.WriteString("## Memecoins\n\n")
	if r.Memecoins != nil && r.Memecoins.Count > 0 {
		sb.WriteString("| Mint | Symbol | Amount |\n")
		sb.WriteString("|------|--------|--------|\n")
		for _, m := range r.Memecoins.Memecoins {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
				m.Mint, strings.ToUpper(m.Symbol), formatAmount(m.Amount)))
		}
	} else {
		sb.WriteString("No memecoins found.\n")
	}
	sb.WriteString("\n")

	// Exchange
	sb.WriteString("## Exchange Interactions\n\n")
	if r.Exchange != nil && r.Exchange.TotalInteractions > 0 {
		sb.WriteString(fmt.Sprintf("Received: %d | Sent: %d\n\n",
			len(r.Exchange.ReceivedFromBinance), len(r.Exchange.SentToBinance)))
		sb.WriteString("| Direction | Signature | Token | Amount | Date |\n")
		sb.WriteString("|-----------|-----------|-------|--------|------|\n")
		for _, i := range r.Exchange.ReceivedFromBinance {
			sb.WriteString(fmt.Sprintf("| received | %s | %s | %s | %s |\n",
				i.Signature, i.Token, formatAmount(i.Amount), i.Date))
		}
		for _, i := range r.Exchange.SentToBinance {
			sb.WriteString(fmt.Sprintf("| sent | %s | %s | %s | %s |\n",
				i.Signature, i.Token, formatAmount(i.Amount), i.Date))
		}
	} else {
		sb.WriteString("No exchange interactions found.\n")
	}
	sb.WriteString("\n")

	// Ghosts
	sb.WriteString("## Dormant Token Awakenings\n\n")
	if len(r.Ghosts) > 0 {
		sb.WriteString("| Mint | Days Dormant | Awakened At | Amount |\n")
		sb.WriteString("|------|--------------|-------------|--------|\n")
		for _, a := range r.Ghosts {
			sb.WriteString(fmt.Sprintf("| %s | %d | %s | %s |\n",
				a.Mint, a.DaysDormant, a.AwakenedAt, a.RecentTransferAmount))
		}
	} else {
		sb.WriteString("No awakenings found.\n")
	}
	sb.WriteString("\n")

	// Cluster
	sb.WriteString("## Cluster\n\n")
	if r.Cluster != nil {
		sb.WriteString(fmt.Sprintf("%d address(es) including the wallet.\n\n", r.Cluster.Len()))
		for _, addr := range r.Cluster.Addresses() {
			sb.WriteString(fmt.Sprintf("- %s\n", addr))
		}
	} else {
		sb.WriteString("Cluster not available.\n")
	}
	sb.WriteString("\n")

	// Trace
	sb.WriteString(fmt.Sprintf("## Trace (depth %d)\n\n", r.TraceDepth))
	if len(r.Trace) > 0 {
		sb.WriteString("| From | To | Token | Amount | Signature |\n")
		sb.WriteString("|------|----|-------|--------|-----------|\n")
		for _, e := range r.Trace {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				e.From, e.To, e.Asset, formatAmount(e.Amount), e.Signature))
		}
	} else {
		sb.WriteString("No outbound transfers traced.\n")
	}
	sb.WriteString("\n")

	// Section errors (always shown if present)
	if len(r.SectionErrors) > 0 {
		sb.WriteString("## Errors\n\n")
		for _, err := range r.SectionErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", err))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
