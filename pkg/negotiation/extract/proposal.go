package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// PriceKey is the single field a bargain proposal carries.
const PriceKey = "price"

// DefaultMatchTolerance is the per-identity absolute tolerance for treating
// two proposals as a re-statement of each other.
const DefaultMatchTolerance = 3.0

// sumTolerance is the absolute slack allowed when checking that allocation
// shares add up to the scenario total.
const sumTolerance = 0.1

// Proposal maps participant names to numeric shares. A bargain proposal uses
// the single PriceKey entry instead.
type Proposal map[string]float64

func (p Proposal) Clone() Proposal {
	if p == nil {
		return nil
	}
	out := make(Proposal, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Price returns the bargain price field.
func (p Proposal) Price() (float64, bool) {
	v, ok := p[PriceKey]
	return v, ok
}

func (p Proposal) Total() float64 {
	total := 0.0
	for _, v := range p {
		total += v
	}
	return total
}

// Names returns the participant names in sorted order.
func (p Proposal) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// NewPriceProposal builds the bargain-side proposal for a single price.
func NewPriceProposal(price float64) Proposal {
	return Proposal{PriceKey: price}
}

// PriceParser extracts a single price from an utterance. The grammar depends
// on the scenario currency, so a parser is built once per scenario.
type PriceParser struct {
	patterns []*regexp.Regexp
}

// NewPriceParser compiles the price patterns in priority order: currency
// adjacent amounts first, then explicit offer/price/counter phrasings.
func NewPriceParser(currency string) *PriceParser {
	quoted := regexp.QuoteMeta(currency)
	return &PriceParser{
		patterns: compileAll(
			quoted+`\s*(\d+(?:\.\d+)?)`,
			`(\d+(?:\.\d+)?)\s*`+quoted,
			`(?i)offer\s*:\s*(\d+(?:\.\d+)?)`,
			`(?i)price\s*(?:is|:)\s*(\d+(?:\.\d+)?)`,
			`(?i)counter\s*:\s*(\d+(?:\.\d+)?)`,
			`(?i)i\s+can\s+do\s+(\d+(?:\.\d+)?)`,
		),
	}
}

// Parse returns a price proposal from the first matching pattern, or nil if
// no pattern matches.
func (pp *PriceParser) Parse(utterance string) Proposal {
	for _, p := range pp.patterns {
		m := p.FindStringSubmatch(utterance)
		if m == nil {
			continue
		}
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return NewPriceProposal(value)
	}
	return nil
}

var (
	// "Name: 40%", "Name gets 40", "Name - 40%", "Name → 40"
	nameFirstPattern = regexp.MustCompile(`(?i)([A-Za-z_][A-Za-z0-9_]*)\s*(?::|gets|receives|-|→)\s*(\d+(?:\.\d+)?)\s*%?`)
	// "40% for Name", "40 to Name"
	numberFirstPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*%?\s*(?:for|to)\s+([A-Za-z_][A-Za-z0-9_]*)`)
)

// Tokens matched by the share patterns that are never participant names.
var nameFirstStopwords = map[string]bool{
	"i": true, "we": true, "you": true, "the": true, "a": true, "an": true,
	"my": true, "our": true, "your": true, "split": true, "here": true,
	"proposal": true,
}

var numberFirstStopwords = map[string]bool{
	"i": true, "we": true, "you": true, "the": true, "a": true, "an": true,
	"my": true, "our": true, "your": true,
}

// ParseShares extracts a name→share mapping from an utterance. The
// name-first grammar runs before the number-first grammar and a name claimed
// by the former is never overwritten by the latter. Returns nil when nothing
// matched. The result is not validated against the participant set or the
// scenario total; see ValidateProposal.
func ParseShares(utterance string) Proposal {
	proposal := Proposal{}

	for _, m := range nameFirstPattern.FindAllStringSubmatch(utterance, -1) {
		name := m[1]
		if nameFirstStopwords[strings.ToLower(name)] {
			continue
		}
		share, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		proposal[name] = share
	}

	for _, m := range numberFirstPattern.FindAllStringSubmatch(utterance, -1) {
		name := m[2]
		if numberFirstStopwords[strings.ToLower(name)] {
			continue
		}
		if _, claimed := proposal[name]; claimed {
			continue
		}
		share, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		proposal[name] = share
	}

	if len(proposal) == 0 {
		return nil
	}
	return proposal
}

// ProposalsMatch reports whether two proposals restate each other: every
// identity present in both differs by at most tolerance, and at least two
// identities are shared. Keys compare case-insensitively. The relation is
// reflexive and symmetric but deliberately not transitive; it approximates
// natural-language re-statement, not equality.
func ProposalsMatch(a, b Proposal, tolerance float64) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}

	la := lowerKeys(a)
	lb := lowerKeys(b)

	common := 0
	for k, va := range la {
		vb, ok := lb[k]
		if !ok {
			continue
		}
		common++
		if diff := va - vb; diff > tolerance || diff < -tolerance {
			return false
		}
	}

	return common >= 2
}

func lowerKeys(p Proposal) map[string]float64 {
	out := make(map[string]float64, len(p))
	for k, v := range p {
		out[strings.ToLower(k)] = v
	}
	return out
}

// Validation is the result of checking an allocation proposal for coverage,
// sum and non-negativity. An invalid proposal is still usable; callers
// decide whether to activate it.
type Validation struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues"`
	Total  float64  `json:"total"`
}

// ValidateProposal checks completeness against participants, a ±0.1 sum
// tolerance against total, and non-negative shares.
func ValidateProposal(p Proposal, participants []string, total float64) Validation {
	var issues []string

	var missing []string
	for _, name := range participants {
		if _, ok := p[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		issues = append(issues, fmt.Sprintf("missing agents: %s", strings.Join(missing, ", ")))
	}

	sum := p.Total()
	if diff := sum - total; diff > sumTolerance || diff < -sumTolerance {
		issues = append(issues, fmt.Sprintf("shares sum to %g, not %g", sum, total))
	}

	var negative []string
	for _, name := range p.Names() {
		if p[name] < 0 {
			negative = append(negative, name)
		}
	}
	if len(negative) > 0 {
		issues = append(issues, fmt.Sprintf("negative shares for: %s", strings.Join(negative, ", ")))
	}

	return Validation{
		Valid:  len(issues) == 0,
		Issues: issues,
		Total:  sum,
	}
}
