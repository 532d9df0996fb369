// Package analyzer reads diary entry text for money amounts and project
// stage hints, and formats the resulting stats.
package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"opcdiary/internal/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Financials is the money found in one piece of text.
type Financials struct {
	Cost   float64 `json:"cost"`
	Profit float64 `json:"profit"`
}

// Analyzer is the content analyzer the diary consults when an entry is
// published. Implementations can be swapped as long as this contract holds.
type Analyzer interface {
	Financials(text string) Financials
	// Stage returns the stage the text suggests, if any.
	Stage(text string) (string, bool)
}

const amountPattern = `[\s\w:=-]*?\$?\s*(\d+(?:,\d{3})*(?:\.\d+)?)`

var (
	costRe   = regexp.MustCompile(`(?i)(?:cost|spend|spent|expense|paid)` + amountPattern)
	profitRe = regexp.MustCompile(`(?i)(?:profit|earn|earned|revenue|income|made)` + amountPattern)

	stageRules = []struct {
		stage string
		re    *regexp.Regexp
	}{
		{models.StageGrowth, regexp.MustCompile(`(?i)\b(?:growth|growing|scaling|scaled|paying customers?|first customers?)\b`)},
		{models.StageLaunched, regexp.MustCompile(`(?i)\b(?:launched|went live|shipped|released)\b`)},
		{models.StageBuilding, regexp.MustCompile(`(?i)\b(?:building|prototype|mvp|coding|developing)\b`)},
	}

	stageRank = map[string]int{
		models.StageIdea:     0,
		models.StageBuilding: 1,
		models.StageLaunched: 2,
		models.StageGrowth:   3,
	}

	leadingNumber = regexp.MustCompile(`^[-+]?(?:\d+\.?\d*|\.\d+)`)
	currency      = message.NewPrinter(language.English)
)

// Regex is the default keyword and amount scanner.
type Regex struct{}

// New returns the default analyzer.
func New() Regex {
	return Regex{}
}

// Financials sums every amount following a cost keyword and every amount
// following a profit keyword.
func (Regex) Financials(text string) Financials {
	return Financials{
		Cost:   sumMatches(costRe, text),
		Profit: sumMatches(profitRe, text),
	}
}

// Stage reports the most advanced stage mentioned in text.
func (Regex) Stage(text string) (string, bool) {
	for _, rule := range stageRules {
		if rule.re.MatchString(text) {
			return rule.stage, true
		}
	}
	return "", false
}

func sumMatches(re *regexp.Regexp, text string) float64 {
	var total float64
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err == nil {
			total += v
		}
	}
	return total
}

// AdvanceStage returns detected when it is further along than current.
// A stage the owner typed by hand is never overwritten.
func AdvanceStage(current, detected string) string {
	if detected == "" {
		return current
	}
	if current == "" {
		return detected
	}
	cur, known := stageRank[current]
	if !known {
		return current
	}
	if stageRank[detected] > cur {
		return detected
	}
	return current
}

// FormatCurrency renders v as dollars with English digit grouping and up to
// three decimals, e.g. "$1,250" or "$12.5".
func FormatCurrency(v float64) string {
	return "$" + currency.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}

// ParseCurrency reads the number at the start of s after dropping every
// character other than digits, '.' and '-'. Unreadable input is 0.
func ParseCurrency(s string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	m := leadingNumber.FindString(cleaned)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

// TimeSpent is the whole days since the earliest entry, as "12d", or
// "1y 20d" once past a year.
func TimeSpent(entries []models.DiaryEntry, now time.Time) string {
	if len(entries) == 0 {
		return "0d"
	}
	start := entries[0].Timestamp
	for _, e := range entries[1:] {
		if e.Timestamp < start {
			start = e.Timestamp
		}
	}
	diff := max(now.UnixMilli()-start, 0)
	days := diff / (24 * 60 * 60 * 1000)
	if days > 365 {
		return fmt.Sprintf("%dy %dd", days/365, days%365)
	}
	return fmt.Sprintf("%dd", days)
}
