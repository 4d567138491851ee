package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSharesNameFirst(t *testing.T) {
	p := ParseShares("[PROPOSAL] Viktor: 40%, Marco: 30%, Elena: 30%")
	require.NotNil(t, p)
	require.Equal(t, Proposal{"Viktor": 40, "Marco": 30, "Elena": 30}, p)
}

func TestParseSharesNumberFirst(t *testing.T) {
	p := ParseShares("How about 35 for Marco and 25 to Yuki")
	require.Equal(t, Proposal{"Marco": 35, "Yuki": 25}, p)
}

func TestParseSharesNameFirstWinsOverNumberFirst(t *testing.T) {
	// "Marco: 40" claims Marco before "30 for Marco" can overwrite it.
	p := ParseShares("Marco: 40, but I could live with 30 for Marco")
	require.InDelta(t, 40.0, p["Marco"], 1e-9)
}

func TestParseSharesSkipsStopwords(t *testing.T) {
	p := ParseShares("I: 50, you: 50, split: 100")
	require.Nil(t, p)
}

func TestParseSharesNoMatchReturnsNil(t *testing.T) {
	require.Nil(t, ParseShares("let us keep talking about contributions"))
}

func TestParseSharesDeterministic(t *testing.T) {
	utterance := "Viktor gets 35, Marco gets 35, Elena: 20, 10 for Yuki"
	first := ParseShares(utterance)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, ParseShares(utterance))
	}
}

func TestPriceParserCurrencyFirst(t *testing.T) {
	pp := NewPriceParser("MAD")
	p := pp.Parse("This is handmade leather, MAD 150 is already a gift.")
	require.NotNil(t, p)
	price, ok := p.Price()
	require.True(t, ok)
	require.InDelta(t, 150.0, price, 1e-9)
}

func TestPriceParserPhrasings(t *testing.T) {
	pp := NewPriceParser("MAD")
	cases := map[string]float64{
		"Offer: 140":         140,
		"the price is 120.5": 120.5,
		"Counter: 95":        95,
		"I can do 90":        90,
		"90 MAD and not one more": 90,
	}
	for utterance, want := range cases {
		p := pp.Parse(utterance)
		require.NotNil(t, p, utterance)
		price, _ := p.Price()
		require.InDelta(t, want, price, 1e-9, utterance)
	}
}

func TestPriceParserNoMatch(t *testing.T) {
	pp := NewPriceParser("MAD")
	require.Nil(t, pp.Parse("this scarf was woven by my grandmother"))
}

func TestProposalsMatchReflexiveAndSymmetric(t *testing.T) {
	a := Proposal{"A": 40, "B": 30, "C": 30}
	b := Proposal{"a": 42, "b": 29, "c": 28.5}

	require.True(t, ProposalsMatch(a, a, DefaultMatchTolerance))
	require.Equal(t,
		ProposalsMatch(a, b, DefaultMatchTolerance),
		ProposalsMatch(b, a, DefaultMatchTolerance))
	require.True(t, ProposalsMatch(a, b, DefaultMatchTolerance))
}

func TestProposalsMatchRequiresTwoSharedIdentities(t *testing.T) {
	a := Proposal{"A": 40, "B": 30}
	b := Proposal{"A": 40, "D": 30}
	require.False(t, ProposalsMatch(a, b, DefaultMatchTolerance))
}

func TestProposalsMatchOutsideTolerance(t *testing.T) {
	a := Proposal{"A": 40, "B": 30, "C": 30}
	b := Proposal{"A": 50, "B": 25, "C": 25}
	require.False(t, ProposalsMatch(a, b, DefaultMatchTolerance))
}

func TestProposalsMatchEmptyIsFalse(t *testing.T) {
	require.False(t, ProposalsMatch(nil, Proposal{"A": 1, "B": 2}, DefaultMatchTolerance))
	require.False(t, ProposalsMatch(Proposal{}, Proposal{}, DefaultMatchTolerance))
}

func TestValidateProposalComplete(t *testing.T) {
	participants := []string{"Viktor", "Marco", "Elena"}
	v := ValidateProposal(Proposal{"Viktor": 40, "Marco": 30, "Elena": 30}, participants, 100)
	require.True(t, v.Valid)
	require.Empty(t, v.Issues)
	require.InDelta(t, 100.0, v.Total, 1e-9)
}

func TestValidateProposalReportsIssues(t *testing.T) {
	participants := []string{"Viktor", "Marco", "Elena"}
	v := ValidateProposal(Proposal{"Viktor": 80, "Marco": -10}, participants, 100)
	require.False(t, v.Valid)
	require.Len(t, v.Issues, 3) // missing Elena, bad sum, negative share
	require.InDelta(t, 70.0, v.Total, 1e-9)
}

func TestValidateProposalSumTolerance(t *testing.T) {
	participants := []string{"A", "B"}
	v := ValidateProposal(Proposal{"A": 50.05, "B": 50.0}, participants, 100)
	require.True(t, v.Valid)
}
