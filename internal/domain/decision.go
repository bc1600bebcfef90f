package domain

import "time"

// AgentVote is one advisory agent's opinion on an opportunity. Ephemeral;
// produced fresh for every evaluation.
type AgentVote struct {
	Agent     string
	Score     float64 // [0,1]
	Veto      bool    // hard veto: rejects regardless of the weighted average
	Rationale string
}

// Decision is the council's final verdict on one opportunity. Exactly one
// Decision is emitted per evaluated Opportunity.
type Decision struct {
	ID            string
	OpportunityID string
	Approve       bool
	Size          float64 // sized bet; zero when Approve is false
	Confidence    float64 // weighted average used for the threshold test
	Votes         []AgentVote
	Degraded      bool // one or more advisory agents could not be consulted
	Reasoning     string
	DecidedAt     time.Time
}
