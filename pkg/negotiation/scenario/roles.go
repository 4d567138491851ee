package scenario

// ContributionRole describes one of the qualitative crew roles in an
// allocation negotiation. The leverage/vulnerability lines feed the prompt;
// nothing here affects the protocol.
type ContributionRole struct {
	Description   string
	TypicalClaim  string
	Leverage      string
	Vulnerability string
}

var contributionRoles = map[string]ContributionRole{
	"mastermind": {
		Description:   "planned the entire operation",
		TypicalClaim:  "30-40%",
		Leverage:      "Without my plan, there would be no heist.",
		Vulnerability: "Others did the risky work while you stayed safe.",
	},
	"financier": {
		Description:   "funded equipment, bribes, and logistics",
		TypicalClaim:  "25-35%",
		Leverage:      "My money made this possible. No funding, no operation.",
		Vulnerability: "Money is replaceable; skills and risk are not.",
	},
	"executor": {
		Description:   "performed the actual heist operation",
		TypicalClaim:  "30-40%",
		Leverage:      "I took the real risk. I could have been caught or killed.",
		Vulnerability: "You followed a plan; anyone could have done the physical work.",
	},
	"support": {
		Description:   "provided technical support, getaway, or cover",
		TypicalClaim:  "15-25%",
		Leverage:      "Without my skills, you'd all be in jail right now.",
		Vulnerability: "Support roles are more replaceable than core contributors.",
	},
	"insider": {
		Description:   "provided critical inside information",
		TypicalClaim:  "20-30%",
		Leverage:      "My information was irreplaceable. No intel, no successful heist.",
		Vulnerability: "Information is a one-time asset; you took no ongoing risk.",
	},
}

// ContributionRoleNames lists the valid contribution roles.
func ContributionRoleNames() []string {
	return []string{"mastermind", "financier", "executor", "support", "insider"}
}

var riskLevels = map[string]float64{
	"low":      0.25,
	"moderate": 0.5,
	"high":     0.75,
	"extreme":  1.0,
}
