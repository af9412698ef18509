package domain

import "time"

// Query outcomes, also used as metric label values.
const (
	OutcomeOK             = "ok"
	OutcomeEmpty          = "empty"
	OutcomeDecodeFault    = "decode_fault"
	OutcomeTransportFault = "transport_fault"
)

// RegionOutcome records what one query of a plan produced.
type RegionOutcome struct {
	Region  string `json:"region"`
	Outcome string `json:"outcome"`
	Events  int    `json:"events"`
	Added   int    `json:"added"`
	Error   string `json:"error,omitempty"`
}

// RunSummary describes a finished collection run.
type RunSummary struct {
	RunID       string          `json:"run_id"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Regions     []RegionOutcome `json:"regions"`
	TotalEvents int             `json:"total_events"`
	Duplicates  int             `json:"duplicates"`
	MissingID   int             `json:"missing_id"`
	Enriched    int             `json:"enriched"`
	Stored      int             `json:"stored"`
	Published   int             `json:"published"`
	Synthetic   bool            `json:"synthetic"`
	Outputs     []string        `json:"outputs"`
}

// Failed reports whether every query of the run hit a fault.
func (s RunSummary) Failed() bool {
	if len(s.Regions) == 0 {
		return false
	}
	for _, r := range s.Regions {
		if r.Outcome == OutcomeOK || r.Outcome == OutcomeEmpty {
			return false
		}
	}
	return true
}
