package reporting

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"solana-wallet-inspector/internal/domain"
)

// RenderTraceCSV renders trace events in discovery order.
func RenderTraceCSV(events domain.TraceResult) string {
	var sb strings.Builder

	sb.WriteString("id,from,to,token,amount,date,signature\n")

	for _, e := range events {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%s,%s\n",
			csvField(e.ID),
			csvField(e.From),
			csvField(e.To),
			csvField(e.Asset),
			formatAmount(e.Amount),
			e.Timestamp.UTC().Format(time.RFC3339),
			csvField(e.Signature),
		))
	}

	return sb.String()
}

// RenderClusterCSV renders graph nodes with their group and link degree.
func RenderClusterCSV(g *domain.ClusterGraph) string {
	var sb strings.Builder

	sb.WriteString("address,group,outbound,inbound\n")
	if g == nil {
		return sb.String()
	}

	outbound := make(map[string]int)
	inbound := make(map[string]int)
	for _, l := range g.Links {
		outbound[l.Source]++
		inbound[l.Target]++
	}

	for _, n := range g.Nodes {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%d\n",
			csvField(n.ID), n.Group, outbound[n.ID], inbound[n.ID]))
	}

	return sb.String()
}

// RenderGhostCSV renders dormancy awakenings.
func RenderGhostCSV(awakenings []domain.GhostAwakening) string {
	var sb strings.Builder

	sb.WriteString("mint,days_dormant,awakened_at,recent_transfer_amount,from,to\n")

	for _, a := range awakenings {
		sb.WriteString(fmt.Sprintf("%s,%d,%s,%s,%s,%s\n",
			csvField(a.Mint),
			a.DaysDormant,
			csvField(a.AwakenedAt),
			csvField(a.RecentTransferAmount),
			csvField(a.From),
			csvField(a.To),
		))
	}

	return sb.String()
}

// RenderExchangeCSV renders exchange interactions, received first.
func RenderExchangeCSV(a *domain.ExchangeActivity) string {
	var sb strings.Builder

	sb.WriteString("direction,signature,from,to,token,amount,date\n")
	if a == nil {
		return sb.String()
	}

	write := func(direction string, rows []domain.ExchangeInteraction) {
		for _, i := range rows {
			sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%s,%s\n",
				direction,
				csvField(i.Signature),
				csvField(i.From),
				csvField(i.To),
				csvField(i.Token),
				formatAmount(i.Amount),
				csvField(i.Date),
			))
		}
	}
	write("received", a.ReceivedFromBinance)
	write("sent", a.SentToBinance)

	return sb.String()
}

// RenderMemecoinCSV renders the memecoins of a report.
func RenderMemecoinCSV(r *domain.MemecoinReport) string {
	var sb strings.Builder

	sb.WriteString("mint,symbol,name,amount,decimals\n")
	if r == nil {
		return sb.String()
	}

	for _, m := range r.Memecoins {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%d\n",
			csvField(m.Mint),
			csvField(m.Symbol),
			csvField(m.Name),
			formatAmount(m.Amount),
			m.Decimals,
		))
	}

	return sb.String()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// csvField quotes s when it contains a separator, quote or line break.
func csvField(s string) string {
	if !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
