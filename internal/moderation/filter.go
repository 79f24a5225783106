// Package moderation screens user-submitted text before it is persisted.
package moderation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Reason identifies which rule rejected a message.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonEmpty         Reason = "empty"
	ReasonTooLong       Reason = "too_long"
	ReasonExcessiveCaps Reason = "excessive_caps"
	ReasonRepeatedChars Reason = "repeated_characters"
	ReasonInappropriate Reason = "inappropriate"
)

// Result is the outcome of moderating one piece of text.
type Result struct {
	Approved bool   `json:"approved"`
	Reason   Reason `json:"reason,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Moderator decides whether text may be published.
type Moderator interface {
	Moderate(text string) Result
}

// Rules configures Filter. Zero values fall back to DefaultRules.
type Rules struct {
	MaxLength     int      `yaml:"max_length"`
	CapsRatio     float64  `yaml:"caps_ratio"`
	CapsMinLength int      `yaml:"caps_min_length"`
	MaxRepeat     int      `yaml:"max_repeat"`
	Denylist      []string `yaml:"denylist"`
}

// DefaultRules returns the stock thresholds.
func DefaultRules() Rules {
	return Rules{
		MaxLength:     2000,
		CapsRatio:     0.7,
		CapsMinLength: 10,
		MaxRepeat:     10,
		Denylist:      []string{"spam", "fuck", "shit", "bitch"},
	}
}

// Filter applies Rules in a fixed order; the first failing rule wins.
type Filter struct {
	rules    Rules
	denylist []string
}

// NewFilter builds a Filter, filling unset thresholds from DefaultRules.
func NewFilter(rules Rules) *Filter {
	def := DefaultRules()
	if rules.MaxLength <= 0 {
		rules.MaxLength = def.MaxLength
	}
	if rules.CapsRatio <= 0 {
		rules.CapsRatio = def.CapsRatio
	}
	if rules.CapsMinLength <= 0 {
		rules.CapsMinLength = def.CapsMinLength
	}
	if rules.MaxRepeat <= 1 {
		rules.MaxRepeat = def.MaxRepeat
	}

	denylist := make([]string, 0, len(rules.Denylist))
	for _, term := range rules.Denylist {
		if t := strings.ToLower(strings.TrimSpace(term)); t != "" {
			denylist = append(denylist, t)
		}
	}
	return &Filter{rules: rules, denylist: denylist}
}

// Rules returns the effective rules.
func (f *Filter) Rules() Rules {
	return f.rules
}

// Moderate checks text against, in order: emptiness, length, caps ratio,
// repeated characters and the denylist.
func (f *Filter) Moderate(text string) Result {
	if strings.TrimSpace(text) == "" {
		return reject(ReasonEmpty, "Message cannot be empty")
	}

	length := utf8.RuneCountInString(text)
	if length > f.rules.MaxLength {
		return reject(ReasonTooLong, fmt.Sprintf("Message too long (max %d characters)", f.rules.MaxLength))
	}

	if length > f.rules.CapsMinLength && capsRatio(text, length) > f.rules.CapsRatio {
		return reject(ReasonExcessiveCaps, "Excessive caps detected")
	}

	if longestRun(text) >= f.rules.MaxRepeat {
		return reject(ReasonRepeatedChars, "Excessive repeated characters")
	}

	lower := strings.ToLower(text)
	for _, term := range f.denylist {
		if strings.Contains(lower, term) {
			return reject(ReasonInappropriate, "Inappropriate content detected")
		}
	}

	return Result{Approved: true}
}

func reject(reason Reason, msg string) Result {
	return Result{Approved: false, Reason: reason, Message: msg}
}

func capsRatio(text string, length int) float64 {
	upper := 0
	for _, r := range text {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return float64(upper) / float64(length)
}

// longestRun returns the longest streak of one repeated rune. Line breaks never count.
func longestRun(text string) int {
	var (
		prev    rune
		run     int
		longest int
	)
	for _, r := range text {
		if r == '\n' {
			run = 0
			prev = r
			continue
		}
		if r == prev {
			run++
		} else {
			run = 1
			prev = r
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}
