// Package validator rejects spam and low-quality collected items by a
// composite content-quality score.
package validator

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/christiancopeland/pulsewatch/internal/cache"
	"github.com/christiancopeland/pulsewatch/internal/models"
)

const (
	minTitleLength      = 10
	maxCapsRatio        = 0.5
	maxSpecialCharRatio = 0.2
	maxURLRatio         = 0.15

	weightTitle   = 0.25
	weightContent = 0.35
	weightURL     = 0.15
	weightSpam    = 0.25

	strictThreshold  = 0.6
	defaultThreshold = 0.4
)

// Severity marks whether an issue disqualifies the item outright.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// Issue is one finding surfaced by a sub-score.
type Issue struct {
	Severity Severity
	Message  string
}

// Result is the validator's verdict.
type Result struct {
	IsValid bool
	Score   float64
	Issues  []Issue
}

var spamMatcher = cache.NewPatternMatcherFromSlice([]string{
	"buy now", "click here", "free money", "act now", "limited time offer",
	"winner", "congratulations you", "viagra", "cialis", "casino", "poker", "betting",
}, nil)

var dollarPerDayPattern = regexp.MustCompile(`\$\d+\s*(per|/)\s*day`)
var capsRunPattern = regexp.MustCompile(`[A-Z]{20,}`)
var urlPattern = regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`)
var shortenerHosts = map[string]bool{
	"bit.ly": true, "tinyurl.com": true, "goo.gl": true, "t.co": true, "ow.ly": true,
}

// Validator computes a ValidationResult for a collected item.
type Validator struct {
	// Strict selects the 0.6 threshold; otherwise the 0.4 default applies.
	Strict bool
}

// New returns a Validator in default (non-strict) mode.
func New() *Validator { return &Validator{} }

// Validate scores title, content, url, and spam-likelihood, combining them
// with weights 0.25/0.35/0.15/0.25.
func (v *Validator) Validate(item models.CollectedItem) Result {
	titleScore, titleIssues := validateTitle(item.Title)
	contentScore, contentIssues := validateContent(item.RawContent)
	urlScore, urlIssues := validateURL(item.URL)
	spamScore, spamIssues := detectSpam(item.Title + " " + item.RawContent)

	score := weightTitle*titleScore + weightContent*contentScore + weightURL*urlScore + weightSpam*spamScore
	score = clamp01(score)

	var issues []Issue
	issues = append(issues, titleIssues...)
	issues = append(issues, contentIssues...)
	issues = append(issues, urlIssues...)
	issues = append(issues, spamIssues...)

	threshold := defaultThreshold
	if v.Strict {
		threshold = strictThreshold
	}

	hasCritical := false
	for _, i := range issues {
		if i.Severity == SeverityCritical {
			hasCritical = true
			break
		}
	}

	return Result{
		IsValid: score >= threshold && !hasCritical,
		Score:   score,
		Issues:  issues,
	}
}

func validateTitle(title string) (float64, []Issue) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return 0, []Issue{{SeverityCritical, "title is empty"}}
	}

	nonWhitespace := countNonWhitespace(trimmed)
	if nonWhitespace < minTitleLength {
		return 0.2, []Issue{{SeverityCritical, "title shorter than 10 non-whitespace characters"}}
	}

	score := 1.0
	var issues []Issue
	if capsRunPattern.MatchString(trimmed) {
		score -= 0.3
		issues = append(issues, Issue{SeverityWarning, "title contains a long all-caps run"})
	}
	return clamp01(score), issues
}

func validateContent(content string) (float64, []Issue) {
	var issues []Issue
	n := len(content)

	var score float64
	switch {
	case n <= 100:
		score = 0.3
	case n <= 500:
		score = 0.5
	case n <= 1000:
		score = 0.7
	case n <= 3000:
		score = 0.85
	default:
		score = 0.95
	}

	if n > 0 {
		special := countSpecialChars(content)
		if float64(special)/float64(n) > maxSpecialCharRatio {
			score -= 0.2
			issues = append(issues, Issue{SeverityWarning, "high special-character ratio"})
		}

		urlChars := countURLChars(content)
		if float64(urlChars)/float64(n) > maxURLRatio {
			score -= 0.2
			issues = append(issues, Issue{SeverityWarning, "high URL-character ratio"})
		}

		upper := countUpper(content)
		letters := countLetters(content)
		if letters > 0 && float64(upper)/float64(letters) > maxCapsRatio {
			score -= 0.15
			issues = append(issues, Issue{SeverityWarning, "high uppercase-letter ratio"})
		}
	}

	return clamp01(score), issues
}

func validateURL(u string) (float64, []Issue) {
	if u == "" {
		return 0, []Issue{{SeverityCritical, "url is empty"}}
	}
	if !urlPattern.MatchString(u) {
		return 0.2, []Issue{{SeverityWarning, "url does not match the expected http(s) pattern"}}
	}

	score := 1.0
	var issues []Issue
	for host := range shortenerHosts {
		if strings.Contains(u, host) {
			score -= 0.3
			issues = append(issues, Issue{SeverityWarning, "url uses a known shortener domain"})
			break
		}
	}
	return clamp01(score), issues
}

func detectSpam(text string) (float64, []Issue) {
	score := 1.0
	var issues []Issue

	if spamMatcher.Contains(strings.ToLower(text)) {
		score = 0
		issues = append(issues, Issue{SeverityCritical, "matched a known spam pattern"})
	}
	if dollarPerDayPattern.MatchString(strings.ToLower(text)) {
		score = 0
		issues = append(issues, Issue{SeverityCritical, "matched a \"$X per day\" spam pattern"})
	}

	if uniq := lexicalUniqueness(text); uniq < 0.3 {
		score -= 0.3
		issues = append(issues, Issue{SeverityWarning, "low lexical uniqueness"})
	}

	return clamp01(score), issues
}

func lexicalUniqueness(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 1
	}
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[w] = struct{}{}
	}
	return float64(len(seen)) / float64(len(words))
}

func countNonWhitespace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func countSpecialChars(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func countURLChars(s string) int {
	n := 0
	for _, match := range regexp.MustCompile(`https?://\S+`).FindAllString(s, -1) {
		n += len(match)
	}
	return n
}

func countUpper(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsUpper(r) {
			n++
		}
	}
	return n
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
