package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Workflow holds the proposal workflow counters. A nil *Workflow records nothing.
type Workflow struct {
	proposalsCreated *prometheus.CounterVec
	decisions        *prometheus.CounterVec
	items            *prometheus.CounterVec
}

// NewWorkflow creates the workflow counters and registers them on reg.
func NewWorkflow(reg prometheus.Registerer) (*Workflow, error) {
	w := &Workflow{
		proposalsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safety_proposals_created_total",
				Help: "Proposals submitted for review, by source.",
			},
			[]string{"source"},
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safety_proposal_decisions_total",
				Help: "Approve and reject attempts, by decision and result.",
			},
			[]string{"decision", "result"},
		),
		items: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "safety_proposal_items_total",
				Help: "Proposal items processed at approval, by collection and outcome.",
			},
			[]string{"collection", "outcome"},
		),
	}

	for _, c := range []prometheus.Collector{w.proposalsCreated, w.decisions, w.items} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// ProposalCreated counts a new proposal. source is "manual", "text" or "document".
func (w *Workflow) ProposalCreated(source string) {
	if w == nil {
		return
	}
	w.proposalsCreated.WithLabelValues(source).Inc()
}

// Decision counts an approve or reject attempt and how it ended.
func (w *Workflow) Decision(decision, result string) {
	if w == nil {
		return
	}
	w.decisions.WithLabelValues(decision, result).Inc()
}

// Item counts one item outcome; outcome is "applied" or a skip reason.
func (w *Workflow) Item(collection, outcome string) {
	if w == nil {
		return
	}
	w.items.WithLabelValues(collection, outcome).Inc()
}
