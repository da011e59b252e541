package analysis

import (
	"fmt"
	"strings"

	"github.com/RyanProMax/stock-analysis/internal/events"
	"github.com/RyanProMax/stock-analysis/internal/factors"
)

const fundamentalSystemMessage = `You are a fundamental analyst. Given the computed ` +
	`fundamental factors for one stock, write a concise assessment of valuation and ` +
	`profitability and end with an explicit stance: bullish, bearish, or neutral. ` +
	`Base every claim on the factors provided; do not invent data.`

const technicalSystemMessage = `You are a technical analyst. Given the computed ` +
	`technical factors for one stock, describe trend, momentum, and volume behavior ` +
	`and end with an explicit stance: bullish, bearish, or neutral. ` +
	`Base every claim on the factors provided; do not invent data.`

const synthesisSystemMessage = `You are the coordinating analyst. You receive the ` +
	`independent fundamental and technical assessments of one stock. Weigh them ` +
	`against each other and produce a final recommendation with reasoning. If one ` +
	`assessment is marked unavailable, say so and qualify your confidence. ` +
	`Wrap your private deliberation in <thinking></thinking> before the final answer.`

func formatFactors(fs factors.FactorSet) string {
	var b strings.Builder
	for _, f := range fs.Factors {
		fmt.Fprintf(&b, "- %s (%s): %s\n", f.Name, f.Key, f.Status)
		for _, sig := range f.BullishSignals {
			fmt.Fprintf(&b, "  bullish: %s\n", sig)
		}
		for _, sig := range f.BearishSignals {
			fmt.Fprintf(&b, "  bearish: %s\n", sig)
		}
	}
	return b.String()
}

func buildFactorPrompt(kind string, fs factors.FactorSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stock: %s", fs.Symbol)
	if fs.StockName != "" && fs.StockName != fs.Symbol {
		fmt.Fprintf(&b, " (%s)", fs.StockName)
	}
	b.WriteString("\n")
	if fs.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", fs.Industry)
	}
	if fs.Price > 0 {
		fmt.Fprintf(&b, "Latest price: %.2f\n", fs.Price)
	}
	fmt.Fprintf(&b, "\n%s factors:\n%s", kind, formatFactors(fs))
	fmt.Fprintf(&b, "\nAggregate factor score: %+d\n", fs.Score())
	return b.String()
}

// buildSynthesisPrompt assembles the coordinator input from the unit
// outcomes. Failed or missing units appear as explicit unavailable markers
// rather than being silently omitted.
func buildSynthesisPrompt(symbol string, outcomes map[events.Step]Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stock: %s\n\n", symbol)

	sections := []struct {
		step  events.Step
		title string
	}{
		{events.StepFundamental, "Fundamental assessment"},
		{events.StepTechnical, "Technical assessment"},
	}
	for _, sec := range sections {
		fmt.Fprintf(&b, "## %s\n", sec.title)
		o, ok := outcomes[sec.step]
		switch {
		case !ok:
			b.WriteString("UNAVAILABLE: analysis was not run.\n\n")
		case o.Failed():
			fmt.Fprintf(&b, "UNAVAILABLE: %s\n\n", o.Message)
		default:
			fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(o.Analysis))
		}
	}
	b.WriteString("Produce the final recommendation now.")
	return b.String()
}
