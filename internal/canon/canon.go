// Package canon maps noisy model identifiers to a small closed set of
// canonical ids, and matches dataset file names against the static
// metadata table.
//
// A Canonicalizer is immutable after construction. The build and the
// interactive resolution path share one instance so they always agree.
package canon

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
)

// Unknown is the canonical id for empty input.
const Unknown = "unknown"

// Rule maps cleaned names matching Pattern to a canonical id.
type Rule struct {
	Pattern string `yaml:"pattern" json:"pattern"`
	ID      string `yaml:"id" json:"id"`
	Display string `yaml:"display" json:"display"`

	re *regexp.Regexp
}

var (
	vendorPrefix = regexp.MustCompile(`^.*/`)
	tagSuffix    = regexp.MustCompile(`[-_. ]+(nvfp4|mxfp4|fp8|fp4|bf16|fp16|int8|int4|w4a16|w8a8|awq|gptq|dynamic|preview|v\d+(?:\.\d+)*)$`)
	separators   = regexp.MustCompile(`[\s_./:]+`)
	repeatedDash = regexp.MustCompile(`-{2,}`)
)

// Canonicalizer applies an ordered rule table to cleaned names.
type Canonicalizer struct {
	rules []Rule
}

// New compiles rules in order. The first matching rule wins.
func New(rules []Rule) (*Canonicalizer, error) {
	compiled := make([]Rule, 0, len(rules))
	for i, r := range rules {
		if r.ID == "" {
			return nil, eris.Errorf("canon: rule %d has no id", i)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "canon: compile rule %d (%s)", i, r.ID)
		}
		r.re = re
		if r.Display == "" {
			r.Display = displayFromID(r.ID)
		}
		compiled = append(compiled, r)
	}
	return &Canonicalizer{rules: compiled}, nil
}

// Default returns a Canonicalizer over DefaultRules.
func Default() *Canonicalizer {
	c, err := New(DefaultRules())
	if err != nil {
		panic(err)
	}
	return c
}

// Rules returns a copy of the rule table.
func (c *Canonicalizer) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Canonicalize returns the canonical id and display name for raw.
func (c *Canonicalizer) Canonicalize(raw string) (id, display string) {
	cleaned := Clean(raw)
	if cleaned == "" {
		return Unknown, "Unknown"
	}
	for _, r := range c.rules {
		if r.re.MatchString(cleaned) {
			return r.ID, r.Display
		}
	}
	return cleaned, displayFromID(cleaned)
}

// Clean lower-cases raw, strips the vendor prefix and trailing
// precision/version tags, and folds separators to single dashes.
func Clean(raw string) string {
	s := strings.ToLower(strings.TrimSpace(norm.NFKC.String(raw)))
	s = vendorPrefix.ReplaceAllString(s, "")
	for {
		stripped := tagSuffix.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	s = separators.ReplaceAllString(s, "-")
	s = repeatedDash.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func displayFromID(id string) string {
	return strings.TrimSpace(strings.ReplaceAll(id, "-", " "))
}

// DefaultRules is the built-in rule table.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: `llama.*405b`, ID: "llama405b", Display: "Llama 3.1 405B Instruct"},
		{Pattern: `llama.*70b`, ID: "llama70b", Display: "Llama 3.3 70B Instruct"},
		{Pattern: `llama.*8b`, ID: "llama8b", Display: "Llama 3.1 8B Instruct"},
		{Pattern: `deepseek-r1|^dsr1`, ID: "dsr1", Display: "DeepSeek R1"},
		{Pattern: `gpt-?oss-?120b`, ID: "gptoss120b", Display: "gpt-oss 120B"},
		{Pattern: `gpt-?oss-?20b`, ID: "gptoss20b", Display: "gpt-oss 20B"},
		{Pattern: `gpt-?oss`, ID: "gptoss", Display: "gpt-oss"},
		{Pattern: `qwen-?3`, ID: "qwen3", Display: "Qwen3"},
	}
}
