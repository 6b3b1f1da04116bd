package command

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"expensetracker/internal/core"
)

var addPattern = regexp.MustCompile(`add (\d+) for (\w+)`)

type viewRule struct {
	phrases [][]string
	view    View
}

// Checked in order; the first rule with a matching phrase wins. A phrase
// matches when its keywords occur as whole words in order, so "show me the
// pie chart" matches "show pie chart" but "shower report" matches nothing.
var viewRules = []viewRule{
	{[][]string{{"show", "pie", "chart"}}, PieChart},
	{[][]string{{"show", "summary"}, {"show", "report"}}, Summary},
	{[][]string{{"show", "dashboard"}, {"ceo", "dashboard"}}, Dashboard},
	{[][]string{{"help"}}, Help},
}

// Interpret parses a transcript. Matching is done on the lower-cased text.
// Amounts are only checked to parse as an integer; zero is accepted here and
// rejected later by the ledger.
func Interpret(transcript string) Intent {
	cmd := strings.ToLower(transcript)

	if m := addPattern.FindStringSubmatch(cmd); m != nil {
		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil && n <= maxWholeUnits {
			return AddExpense{
				Amount:       core.Money{Cents: n * 100},
				CategoryHint: titleCase(m[2]),
			}
		}
	}

	words := splitWords(cmd)
	for _, rule := range viewRules {
		for _, p := range rule.phrases {
			if wordsInOrder(words, p) {
				return ShowView{View: rule.view}
			}
		}
	}

	return Unrecognized{Raw: transcript}
}

// splitWords breaks s on anything that is not a letter or digit.
func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func wordsInOrder(words, keywords []string) bool {
	i := 0
	for _, w := range words {
		if i < len(keywords) && w == keywords[i] {
			i++
		}
	}
	return i == len(keywords)
}

// Largest whole-unit amount representable in int64 cents.
const maxWholeUnits = (1<<63 - 1) / 100

// titleCase upper-cases the first letter and lower-cases the rest.
func titleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
