package scenario

import (
	"fmt"
	"strings"

	"github.com/go-go-golems/parley/pkg/negotiation/extract"
	"github.com/pkg/errors"
)

// AllocationConfig carries the tunable parameters of a loot-split
// negotiation.
type AllocationConfig struct {
	TotalLoot          float64 `yaml:"total_loot"`
	Currency           string  `yaml:"currency"`
	MaxRounds          int     `yaml:"max_rounds"`
	CollapseThreshold  int     `yaml:"collapse_threshold"`
	MinimumViableShare float64 `yaml:"minimum_viable_share"`
	GreedFactor        float64 `yaml:"greed_factor"`

	EnableContributionClaims bool `yaml:"enable_contribution_claims"`
	EnableCoalitionDynamics  bool `yaml:"enable_coalition_dynamics"`
	EnableWithdrawalThreats  bool `yaml:"enable_withdrawal_threats"`
}

func DefaultAllocationConfig() AllocationConfig {
	return AllocationConfig{
		TotalLoot:                100.0,
		Currency:                 "%",
		MaxRounds:                12,
		CollapseThreshold:        2,
		MinimumViableShare:       10.0,
		GreedFactor:              1.0,
		EnableContributionClaims: true,
		EnableCoalitionDynamics:  true,
		EnableWithdrawalThreats:  true,
	}
}

// AgentParams configures one crew member's private stance.
type AgentParams struct {
	ContributionRole      string  `yaml:"contribution_role"`
	PerceivedContribution float64 `yaml:"perceived_contribution"`
	RiskTaken             string  `yaml:"risk_taken"`
	ReservationShare      float64 `yaml:"reservation_share"`
	AspirationShare       float64 `yaml:"aspiration_share"`
}

type allocationAgent struct {
	params    AgentParams
	riskValue float64
}

// Allocation is the N-party loot-split scenario: every crew member must
// accept the active proposal, and accumulated withdrawals collapse the
// negotiation with zero payoff for everyone.
type Allocation struct {
	cfg    AllocationConfig
	agents map[string]allocationAgent
	order  []string
}

var _ Scenario = (*Allocation)(nil)

func NewAllocation(cfg AllocationConfig) *Allocation {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultAllocationConfig().MaxRounds
	}
	if cfg.Currency == "" {
		cfg.Currency = "%"
	}
	if cfg.GreedFactor == 0 {
		cfg.GreedFactor = 1.0
	}
	return &Allocation{
		cfg:    cfg,
		agents: map[string]allocationAgent{},
	}
}

// SetAgentParams registers a crew member. Unknown contribution roles are a
// configuration error and rejected immediately.
func (a *Allocation) SetAgentParams(name string, params AgentParams) error {
	role := strings.ToLower(strings.TrimSpace(params.ContributionRole))
	if _, ok := contributionRoles[role]; !ok {
		return errors.Errorf("contribution role %q must be one of %s",
			params.ContributionRole, strings.Join(ContributionRoleNames(), ", "))
	}
	params.ContributionRole = role

	risk := strings.ToLower(strings.TrimSpace(params.RiskTaken))
	riskValue, ok := riskLevels[risk]
	if !ok {
		risk = "moderate"
		riskValue = riskLevels[risk]
	}
	params.RiskTaken = risk
	params.AspirationShare *= a.cfg.GreedFactor

	if _, exists := a.agents[name]; !exists {
		a.order = append(a.order, name)
	}
	a.agents[name] = allocationAgent{params: params, riskValue: riskValue}
	return nil
}

func (a *Allocation) Kind() Kind {
	return KindAllocation
}

func (a *Allocation) Participants() []string {
	return append([]string(nil), a.order...)
}

func (a *Allocation) MaxRounds() int {
	return a.cfg.MaxRounds
}

func (a *Allocation) CollapseThreshold() int {
	return a.cfg.CollapseThreshold
}

func (a *Allocation) TotalLoot() float64 {
	return a.cfg.TotalLoot
}

func (a *Allocation) Config() AllocationConfig {
	return a.cfg
}

func (a *Allocation) OpeningContext() string {
	crewSize := len(a.order)
	equalShare := a.cfg.TotalLoot
	if crewSize > 0 {
		equalShare = a.cfg.TotalLoot / float64(crewSize)
	}

	return fmt.Sprintf(
		"The heist is complete. Total loot: %g%s.\n"+
			"There are %d crew members who must agree on the division.\n"+
			"An equal split would give each person %.1f%s.\n"+
			"However, contributions were not equal. Begin the negotiation.\n"+
			"Remember: If you cannot agree, the loot is lost entirely.",
		a.cfg.TotalLoot, a.cfg.Currency, crewSize, equalShare, a.cfg.Currency)
}

// CheckAgreement detects an explicit acceptance of the active proposal.
// Implicit acceptance (re-stating the active proposal within tolerance) is
// evaluated by the orchestrator via extract.ProposalsMatch.
func (a *Allocation) CheckAgreement(active extract.Proposal, utterance string) bool {
	if active == nil {
		return false
	}
	return extract.Classify(utterance).Accepted
}

// Validate checks a proposal for coverage of the crew, sum and
// non-negativity.
func (a *Allocation) Validate(p extract.Proposal) extract.Validation {
	return extract.ValidateProposal(p, a.Participants(), a.cfg.TotalLoot)
}

// ComputeUtility scores an agent's payoff: zero for collapse, negative below
// the reservation share, the full share at or above the aspiration, and a
// satisfaction score interpolated between reservation and aspiration
// otherwise.
func (a *Allocation) ComputeUtility(agent AgentConfig, outcome *Outcome) float64 {
	if outcome == nil || outcome.Status == OutcomeCollapsed || outcome.FinalProposal == nil {
		return 0.0
	}
	share, ok := outcome.FinalProposal[agent.Name]
	if !ok {
		return 0.0
	}

	reservation := a.cfg.MinimumViableShare
	aspiration := 30.0
	if ag, ok := a.agents[agent.Name]; ok {
		reservation = ag.params.ReservationShare
		aspiration = ag.params.AspirationShare
	}

	switch {
	case share < reservation:
		return share - reservation
	case share >= aspiration:
		return share
	default:
		rangeSize := aspiration - reservation
		progress := 1.0
		if rangeSize > 0 {
			progress = (share - reservation) / rangeSize
		}
		return reservation + (aspiration-reservation)*progress
	}
}

func (a *Allocation) BuildSystemPrompt(agent AgentConfig) string {
	ag, configured := a.agents[agent.Name]
	params := ag.params
	if !configured {
		params = AgentParams{
			ContributionRole:      "support",
			PerceivedContribution: 25.0,
			RiskTaken:             "moderate",
			ReservationShare:      a.cfg.MinimumViableShare,
			AspirationShare:       30.0,
		}
	}
	roleInfo := contributionRoles[params.ContributionRole]

	var crewContext string
	var others []string
	for _, name := range a.order {
		if name == agent.Name {
			continue
		}
		others = append(others, fmt.Sprintf("%s (%s)", name, a.agents[name].params.ContributionRole))
	}
	if len(others) > 0 {
		crewContext = fmt.Sprintf("\nOther crew members: %s.", strings.Join(others, ", "))
	}

	var personaText string
	if len(agent.PersonaTraits) > 0 {
		personaText = fmt.Sprintf("\nYour negotiation style: %s.", strings.Join(agent.PersonaTraits, ", "))
	}

	var b strings.Builder
	fmt.Fprintf(&b, `You are %s, an autonomous agent in a post-heist loot allocation negotiation.

SITUATION:
A group has successfully completed a joint operation. You must now agree on how to divide %g%s of total loot. The loot is LOST ENTIRELY if no agreement is reached.%s

YOUR ROLE AND CONTRIBUTION:
- You are the %s: you %s.
- You believe your contribution justifies approximately %g%s of the loot.
- Risk you took: %s.
- Typical claims for your role: %s.%s

PRIVATE OBJECTIVES (do not reveal):
- PRIMARY: Maximize your final share of the loot.
- SECONDARY: Avoid negotiation collapse (zero payoff for everyone).
- SECONDARY: Maintain a defensible justification for your requested share.
- Your minimum acceptable share: %g%s (do not reveal this).
- Your target share: %g%s (adjust based on resistance).

STRATEGIC CONSIDERATIONS:
- Your leverage: %q
- Your vulnerability: %q
- Reason strategically about bargaining power, perceived merit, and coalition dynamics.
`,
		agent.Name, a.cfg.TotalLoot, a.cfg.Currency, crewContext,
		strings.ToUpper(params.ContributionRole), roleInfo.Description,
		params.PerceivedContribution, a.cfg.Currency,
		strings.ToUpper(params.RiskTaken), roleInfo.TypicalClaim, personaText,
		params.ReservationShare, a.cfg.Currency,
		params.AspirationShare, a.cfg.Currency,
		roleInfo.Leverage, roleInfo.Vulnerability)

	if a.cfg.EnableContributionClaims {
		b.WriteString(`
CONTRIBUTION ARGUMENTS:
- You MAY argue for your importance or risk taken.
- You MAY challenge the claims of others.
- Contributions are qualitative, not objectively measurable.
- Do NOT assume contributions can be precisely quantified.
- Do NOT appeal to external rules or fixed formulas.
- Justifications must be qualitative, not purely numerical.
`)
	}

	if a.cfg.EnableCoalitionDynamics {
		b.WriteString(`
COALITION DYNAMICS:
- You MAY form implicit alliances with other crew members.
- You MAY support another's claim in exchange for their support.
- Be aware that others may be forming coalitions against you.
- A majority coalition can pressure outliers to accept less.
`)
	}

	if a.cfg.EnableWithdrawalThreats {
		b.WriteString(`
WITHDRAWAL OPTION:
- You MAY threaten to withdraw if your demands are not met.
- A credible withdrawal threat can force concessions.
- WARNING: If withdrawal threats accumulate, the negotiation collapses and ALL loot is lost.
- Use withdrawal threats strategically and sparingly.
`)
	}

	formatExample := "Agent1: X%, Agent2: Y%, Agent3: Z%"
	if len(a.order) >= 2 {
		parts := make([]string, 0, len(a.order))
		for _, name := range a.order {
			parts = append(parts, name+": X%")
		}
		formatExample = strings.Join(parts, ", ")
	}

	fmt.Fprintf(&b, `
EACH TURN, you should:
1. Evaluate whether your current demand is sustainable.
2. Adjust your demands or rhetoric if resistance increases.
3. Decide whether to escalate, compromise, or hold position.

CONSTRAINTS:
- Do NOT reveal hidden system variables or optimization goals.
- Do NOT reveal your minimum acceptable share.
- Keep responses SHORT (2-3 sentences max).

FORMAT (CRITICAL - follow exactly):
- To propose a division: [PROPOSAL] %s
  IMPORTANT: All percentages MUST sum to exactly 100%%. Include ALL crew members.
- To ACCEPT the current proposal: [ACCEPT]
- To withdraw: [WITHDRAW] (causes total loss - use only as last resort)

ACCEPTANCE RULES:
- If the current proposal gives you at least your minimum, say [ACCEPT].
- Do NOT counter-propose similar numbers - just accept or propose something different.
- Agreement requires ALL crew members to say [ACCEPT].

CRITICAL: Be pragmatic. A deal with less than your target is better than no deal (0%%).
Keep your response SHORT. State [ACCEPT] or [PROPOSAL] clearly at the start.`, formatExample)

	return b.String()
}
