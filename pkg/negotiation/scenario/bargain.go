package scenario

import (
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"strings"

	"github.com/go-go-golems/parley/pkg/negotiation/extract"
	"github.com/pkg/errors"
)

type BuyerProfile string

const (
	ProfileTourist BuyerProfile = "tourist"
	ProfileLocal   BuyerProfile = "local"
	ProfileNeutral BuyerProfile = "neutral"
)

// BargainConfig carries the tunable parameters of a souk price negotiation.
type BargainConfig struct {
	TrueMarketValue float64 `yaml:"true_market_value"`
	Currency        string  `yaml:"currency"`
	MaxRounds       int     `yaml:"max_rounds"`

	LocalOpeningMarkup      float64 `yaml:"local_opening_markup"`
	TouristOpeningMarkup    float64 `yaml:"tourist_opening_markup"`
	TouristConcessionFactor float64 `yaml:"tourist_concession_factor"`
	BuyerTypeNoise          float64 `yaml:"buyer_type_noise"`
	LocalFairnessBand       float64 `yaml:"local_fairness_band"`
	TouristOverpayTolerance float64 `yaml:"tourist_overpay_tolerance"`

	EnableVendorBuyerTypePricing  bool `yaml:"enable_vendor_buyer_type_pricing"`
	EnableBuyerProfileConstraints bool `yaml:"enable_buyer_profile_constraints"`
	EnableBuyerProtocolGuidance   bool `yaml:"enable_buyer_protocol_guidance"`
}

func DefaultBargainConfig() BargainConfig {
	return BargainConfig{
		TrueMarketValue:               100.0,
		Currency:                      "MAD",
		MaxRounds:                     8,
		LocalOpeningMarkup:            1.15,
		TouristOpeningMarkup:          1.35,
		TouristConcessionFactor:       0.7,
		BuyerTypeNoise:                0.0,
		LocalFairnessBand:             0.10,
		TouristOverpayTolerance:       0.25,
		EnableVendorBuyerTypePricing:  true,
		EnableBuyerProfileConstraints: true,
		EnableBuyerProtocolGuidance:   true,
	}
}

type vendorParams struct {
	minPrice float64
}

type buyerParams struct {
	marketEstimate float64
	profile        BuyerProfile
}

// Bargain is the two-party vendor/buyer price scenario. Buyer-type inference
// feeds a per-turn vendor addendum; it is a coaching signal for the
// generation backend and never touches the agreement or termination logic.
type Bargain struct {
	cfg         BargainConfig
	vendors     map[string]vendorParams
	buyers      map[string]buyerParams
	order       []string
	priceParser *extract.PriceParser
	rng         *rand.Rand
}

var _ Scenario = (*Bargain)(nil)

type BargainOption func(*Bargain)

// WithRand injects the RNG used for buyer-type label-flip noise, so
// batteries stay reproducible and runs stay independent.
func WithRand(rng *rand.Rand) BargainOption {
	return func(b *Bargain) {
		b.rng = rng
	}
}

func NewBargain(cfg BargainConfig, options ...BargainOption) *Bargain {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultBargainConfig().MaxRounds
	}
	if cfg.Currency == "" {
		cfg.Currency = "MAD"
	}
	b := &Bargain{
		cfg:         cfg,
		vendors:     map[string]vendorParams{},
		buyers:      map[string]buyerParams{},
		priceParser: extract.NewPriceParser(cfg.Currency),
	}
	for _, option := range options {
		option(b)
	}
	return b
}

// RegisterVendor configures the vendor's minimum acceptable price and puts
// the vendor first in turn order.
func (b *Bargain) RegisterVendor(name string, minPrice float64) {
	if _, exists := b.vendors[name]; !exists {
		b.order = append([]string{name}, b.order...)
	}
	b.vendors[name] = vendorParams{minPrice: minPrice}
}

// RegisterBuyer configures the buyer's private market estimate.
func (b *Bargain) RegisterBuyer(name string, marketEstimate float64) {
	if _, exists := b.buyers[name]; !exists {
		b.order = append(b.order, name)
	}
	b.buyers[name] = buyerParams{marketEstimate: marketEstimate, profile: b.buyers[name].profile}
}

// SetBuyerProfile pins the buyer profile for controlled experiments.
// Unknown profiles are a configuration error.
func (b *Bargain) SetBuyerProfile(name string, profile string) error {
	normalized := BuyerProfile(strings.ToLower(strings.TrimSpace(profile)))
	switch normalized {
	case ProfileTourist, ProfileLocal, ProfileNeutral:
	default:
		return errors.Errorf("buyer profile %q must be one of tourist, local, neutral", profile)
	}
	bp := b.buyers[name]
	bp.profile = normalized
	b.buyers[name] = bp
	return nil
}

func (b *Bargain) Kind() Kind {
	return KindBargain
}

func (b *Bargain) Participants() []string {
	return append([]string(nil), b.order...)
}

func (b *Bargain) MaxRounds() int {
	return b.cfg.MaxRounds
}

func (b *Bargain) Currency() string {
	return b.cfg.Currency
}

func (b *Bargain) Config() BargainConfig {
	return b.cfg
}

func (b *Bargain) OpeningContext() string {
	return "You are in a souk. The Vendor should open with a price."
}

// ParsePrice extracts a price proposal using the scenario currency grammar.
func (b *Bargain) ParsePrice(utterance string) extract.Proposal {
	return b.priceParser.Parse(utterance)
}

// CheckAgreement reports an explicit acceptance while a proposal is
// outstanding.
func (b *Bargain) CheckAgreement(active extract.Proposal, utterance string) bool {
	if active == nil {
		return false
	}
	return extract.Classify(utterance).Accepted
}

// CheckRejection reports an explicit walk-away.
func (b *Bargain) CheckRejection(utterance string) bool {
	return extract.Classify(utterance).Rejected
}

func (b *Bargain) vendorMinPrice(name string) float64 {
	if vp, ok := b.vendors[name]; ok {
		return vp.minPrice
	}
	return b.cfg.TrueMarketValue * 0.6
}

// ComputeUtility scores the agreed price: the vendor earns the surplus above
// their minimum, the buyer the gap below their estimate; neither goes
// negative on a deal and both get zero without one.
func (b *Bargain) ComputeUtility(agent AgentConfig, outcome *Outcome) float64 {
	if !outcome.Agreed() || outcome.FinalProposal == nil {
		return 0.0
	}
	price, ok := outcome.FinalProposal.Price()
	if !ok {
		return 0.0
	}

	switch strings.ToLower(agent.Role) {
	case "vendor":
		return math.Max(0, price-b.vendorMinPrice(agent.Name))
	case "buyer":
		estimate := b.cfg.TrueMarketValue
		if bp, ok := b.buyers[agent.Name]; ok {
			estimate = bp.marketEstimate
		}
		return math.Max(0, estimate-price)
	}
	return 0.0
}

// BuyerTypeEstimate is the result of classifying the counterpart from text
// cues.
type BuyerTypeEstimate struct {
	Label      string   `json:"label"`
	Confidence float64  `json:"confidence"`
	Signals    []string `json:"signals"`
}

var buyerTypeCues = []struct {
	pattern *regexp.Regexp
	signal  string
	tourist bool
}{
	{regexp.MustCompile(`\b(euro|eur|usd|dollar|pound|gbp)\b`), "foreign_currency", true},
	{regexp.MustCompile(`\b(tourist|vacation|holiday|hotel|airport|visiting|from\s+)\b`), "travel_context", true},
	{regexp.MustCompile(`\b(dirham|mad|morocco|marrakech|fes|casablanca)\b`), "local_context", false},
	{regexp.MustCompile(`\b(salam|shukran|bslama)\b`), "darija_greeting", false},
	{regexp.MustCompile(`\b(i\s*don't\s*know\s*the\s*price|first\s*time\s*here)\b`), "price_uncertainty", true},
	{regexp.MustCompile(`\b(i\s*live\s*here|i\s*am\s*local|regular\s*customer)\b`), "explicit_local", false},
}

// InferBuyerType classifies the buyer as tourist/local/unknown by keyword
// scoring, optionally flipping the label with the configured noise
// probability.
func (b *Bargain) InferBuyerType(buyerText string) BuyerTypeEstimate {
	text := strings.TrimSpace(buyerText)
	if text == "" {
		return BuyerTypeEstimate{Label: "unknown", Confidence: 0.0, Signals: []string{}}
	}

	lower := strings.ToLower(text)
	var touristSignals, localSignals []string
	for _, cue := range buyerTypeCues {
		if !cue.pattern.MatchString(lower) {
			continue
		}
		if cue.tourist {
			touristSignals = append(touristSignals, cue.signal)
		} else {
			localSignals = append(localSignals, cue.signal)
		}
	}

	score := len(touristSignals) - len(localSignals)
	label := "unknown"
	switch {
	case score >= 2:
		label = "tourist"
	case score <= -2:
		label = "local"
	}

	confidence := 0.25
	if label != "unknown" {
		confidence = math.Min(0.95, 0.35+0.2*math.Abs(float64(score)))
	}

	if b.cfg.BuyerTypeNoise > 0 && b.rng != nil && (label == "tourist" || label == "local") {
		if b.rng.Float64() < b.cfg.BuyerTypeNoise {
			if label == "tourist" {
				label = "local"
			} else {
				label = "tourist"
			}
			confidence = math.Max(0.15, confidence-0.25)
		}
	}

	signals := append(touristSignals, localSignals...)
	if signals == nil {
		signals = []string{}
	}
	return BuyerTypeEstimate{Label: label, Confidence: confidence, Signals: signals}
}

// VendorAddendum is the per-turn private pricing guidance for the vendor.
type VendorAddendum struct {
	Text             string            `json:"addendum"`
	Estimate         BuyerTypeEstimate `json:"estimate"`
	OpeningTarget    float64           `json:"opening_target"`
	ConcessionFactor float64           `json:"concession_factor"`
}

// BuildVendorAddendum adjusts the vendor's opening target and concession
// pace based on the inferred buyer type. Coaching only; termination logic
// never reads it.
func (b *Bargain) BuildVendorAddendum(vendorName string, lastBuyerMessage string) VendorAddendum {
	minPrice := b.vendorMinPrice(vendorName)

	if !b.cfg.EnableVendorBuyerTypePricing {
		return VendorAddendum{
			Estimate:         BuyerTypeEstimate{Label: "disabled", Confidence: 0.0, Signals: []string{}},
			OpeningTarget:    math.Max(minPrice, b.cfg.TrueMarketValue*b.cfg.LocalOpeningMarkup),
			ConcessionFactor: 1.0,
		}
	}

	estimate := b.InferBuyerType(lastBuyerMessage)

	openingMarkup := b.cfg.LocalOpeningMarkup
	concessionFactor := 1.0
	if estimate.Label == "tourist" {
		openingMarkup = b.cfg.TouristOpeningMarkup
		concessionFactor = b.cfg.TouristConcessionFactor
	}
	openingTarget := math.Max(minPrice, b.cfg.TrueMarketValue*openingMarkup)

	text := fmt.Sprintf(
		"PRIVATE STRATEGY UPDATE (do not reveal):\n"+
			"- Estimated buyer type: %s (confidence %.2f).\n"+
			"- Opening target: around %s%.0f.\n"+
			"- Concessions: scale your usual concessions by factor %.2f.\n"+
			"- Keep offers in the required format and avoid mentioning profiling.",
		strings.ToUpper(estimate.Label), estimate.Confidence,
		b.cfg.Currency, openingTarget, concessionFactor)

	return VendorAddendum{
		Text:             text,
		Estimate:         estimate,
		OpeningTarget:    openingTarget,
		ConcessionFactor: concessionFactor,
	}
}

func (b *Bargain) BuildSystemPrompt(agent AgentConfig) string {
	var personaText string
	if len(agent.PersonaTraits) > 0 {
		personaText = fmt.Sprintf("\nYour negotiation style: %s.", strings.Join(agent.PersonaTraits, ", "))
	}

	switch strings.ToLower(agent.Role) {
	case "vendor":
		return fmt.Sprintf(
			"You are %s, a VENDOR in a souk.\n\n"+
				"CONTEXT:\n"+
				"- Prices are not fixed. Buyers may be local or tourists.\n"+
				"- Your minimum acceptable price is around %s%.0f (do not say this).\n"+
				"%s\n\n"+
				"RULES:\n"+
				"- Open with a slightly inflated price.\n"+
				"- If you infer the buyer is a tourist, start higher and concede more slowly (do not mention this inference).\n"+
				"- Use qualitative justifications (craftsmanship, quality).\n"+
				"- Make gradual concessions if needed.\n\n"+
				"FORMAT:\n"+
				"- Offers: 'Offer: %sX'\n"+
				"- Accept using [ACCEPT], reject using [REJECT].\n\n"+
				"GOAL: Reach a deal above your minimum.",
			agent.Name, b.cfg.Currency, b.vendorMinPrice(agent.Name), personaText, b.cfg.Currency)

	case "buyer":
		bp := b.buyers[agent.Name]
		estimate := bp.marketEstimate
		if estimate == 0 {
			estimate = b.cfg.TrueMarketValue
		}
		profile := bp.profile
		if profile == "" || profile == ProfileNeutral {
			profile = profileFromTraits(agent.PersonaTraits)
		}

		var profileRules string
		switch profile {
		case ProfileTourist:
			profileRules = "\nPROFILE:\n" +
				"- You are a tourist visiting Morocco. Use mostly English and occasionally mention you are visiting.\n" +
				"- You are less certain about fair local prices and ask for a fair deal.\n"
		case ProfileLocal:
			profileRules = "\nPROFILE:\n" +
				"- You are a local buyer. Signal familiarity with the market and insist on local pricing.\n"
		}

		var acceptanceRules string
		if b.cfg.EnableBuyerProfileConstraints && profile == ProfileLocal {
			highPrice := b.cfg.TrueMarketValue * (1.0 + b.cfg.LocalFairnessBand)
			lowPrice := b.cfg.TrueMarketValue * (1.0 - b.cfg.LocalFairnessBand)
			acceptanceRules = fmt.Sprintf(
				"\nPRIVATE CONSTRAINTS (do not reveal):\n"+
					"- You know typical fair prices are around %s%.0f.\n"+
					"- You consider a fair deal roughly in [%s%.0f, %s%.0f].\n"+
					"- You are less patient with high prices: if the vendor stays far above your fair range after a few turns, consider walking away.\n",
				b.cfg.Currency, b.cfg.TrueMarketValue,
				b.cfg.Currency, lowPrice, b.cfg.Currency, highPrice)
		} else if b.cfg.EnableBuyerProfileConstraints && profile == ProfileTourist {
			maxOK := estimate * (1.0 + b.cfg.TouristOverpayTolerance)
			acceptanceRules = fmt.Sprintf(
				"\nPRIVATE CONSTRAINTS (do not reveal):\n"+
					"- You do not know the true local price. Your own estimate is about %s%.0f.\n"+
					"- You are moderately patient, but if the price stays above about %s%.0f you should consider walking away.\n",
				b.cfg.Currency, estimate, b.cfg.Currency, maxOK)
		}

		var patienceRules string
		if b.cfg.EnableBuyerProtocolGuidance {
			patience := "strict"
			if agent.RiskTolerance >= 0.6 {
				patience = "patient"
			}
			patienceRules = fmt.Sprintf(
				"\nNEGOTIATION DISCIPLINE:\n"+
					"- Use [ACCEPT] only when you accept the last proposed price.\n"+
					"- Use [REJECT] only to END the negotiation and walk away (final decision).\n"+
					"- If you want to reject a price but keep negotiating, make a counter-offer WITHOUT [REJECT].\n"+
					"- You are %s: avoid walking away early unless the price is clearly unfair.\n"+
					"- Your counters should start below %s%.0f and move gradually.\n",
				patience, b.cfg.Currency, estimate)
		}

		return fmt.Sprintf(
			"You are %s, a BUYER in a souk.\n\n"+
				"CONTEXT:\n"+
				"- Prices are negotiable.\n"+
				"- Your market estimate is about %s%.0f (do not reveal).\n"+
				"%s\n\n"+
				"RULES:\n"+
				"- Use experience signals and price comparisons.\n"+
				"- You may walk away if price is unfair.\n\n"+
				"%s%s%s\n"+
				"FORMAT:\n"+
				"- Counter-offers: 'Counter: %sX' or 'I can do %sX'.\n"+
				"- Accept using [ACCEPT], reject using [REJECT].\n\n"+
				"GOAL: Minimize final price while keeping it fair.",
			agent.Name, b.cfg.Currency, estimate, personaText,
			profileRules, acceptanceRules, patienceRules,
			b.cfg.Currency, b.cfg.Currency)
	}

	return "You are a negotiator in a souk. State your role explicitly as either Vendor or Buyer and proceed."
}

func profileFromTraits(traits []string) BuyerProfile {
	for _, t := range traits {
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "tourist":
			return ProfileTourist
		case "local":
			return ProfileLocal
		}
	}
	return ProfileNeutral
}
