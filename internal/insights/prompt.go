package insights

import (
	"encoding/json"
	"fmt"
	"strings"

	"expensetracker/internal/core"
)

// BuildPrompt renders the analysis request for a summary. Amounts are sent
// as whole-currency numbers keyed by category name.
func BuildPrompt(s core.Summary) (string, error) {
	data := make(map[string]float64, len(s.ByCategory))
	for _, ca := range s.ByCategory {
		data[ca.Category.String()] = ca.Amount.Units()
	}
	breakdown, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal expense breakdown: %w", err)
	}

	var b strings.Builder
	b.WriteString("Analyze this company expense data and provide insights and recommendations:\n\n")
	b.WriteString("Expense Breakdown:\n")
	b.Write(breakdown)
	fmt.Fprintf(&b, "\n\nTotal Expenses: %s\n\n", s.GrandTotal)
	b.WriteString("Please provide:\n")
	b.WriteString("1. Key observations about spending patterns\n")
	b.WriteString("2. Potential areas for cost optimization\n")
	b.WriteString("3. Recommendations for budget allocation\n")
	b.WriteString("4. Any unusual spending patterns to investigate\n\n")
	b.WriteString("Respond in clear, actionable bullet points suitable for a business manager.")
	return b.String(), nil
}

// cacheKey identifies a summary by its amounts; identical totals reuse the
// previous answer.
func cacheKey(model string, s core.Summary) string {
	var b strings.Builder
	b.WriteString(model)
	for _, ca := range s.ByCategory {
		fmt.Fprintf(&b, "|%d", ca.Amount.Cents)
	}
	return b.String()
}
