package service

import (
	"safetyagent/internal/allowlist"
	"safetyagent/internal/model"
	"safetyagent/internal/repository"
)

// WriteGate decides which proposal items may reach live collections and with which fields.
// It never touches storage; the resulting plan is applied by ProposalRepository.Apply.
type WriteGate struct {
	allow *allowlist.AllowList
}

func NewWriteGate(allow *allowlist.AllowList) *WriteGate {
	return &WriteGate{allow: allow}
}

// Plan filters items through the allow-list in item order.
// Unknown collections, unsupported actions and payloads with no permitted field
// are skipped, never errors; every item gets exactly one outcome.
func (g *WriteGate) Plan(items []model.ProposalItem) ([]repository.RowInsert, []model.ItemOutcome) {
	rows := make([]repository.RowInsert, 0, len(items))
	outcomes := make([]model.ItemOutcome, 0, len(items))

	for _, it := range items {
		out := model.ItemOutcome{ItemID: it.ID, TargetCollection: it.TargetCollection}

		if reason := g.skipReason(it.TargetCollection, it.Action); reason != "" {
			out.Reason = reason
			outcomes = append(outcomes, out)
			continue
		}

		cols, vals, _ := g.allow.Filter(it.TargetCollection, it.Payload)
		if len(cols) == 0 {
			out.Reason = model.SkipNoAllowedFields
			outcomes = append(outcomes, out)
			continue
		}

		rows = append(rows, repository.RowInsert{
			ItemID:     it.ID,
			Collection: it.TargetCollection,
			Columns:    cols,
			Values:     vals,
		})
		out.Applied = true
		out.Fields = cols
		outcomes = append(outcomes, out)
	}
	return rows, outcomes
}

// Unapprovable returns the proposed items that approval would skip regardless of payload.
func (g *WriteGate) Unapprovable(items []model.ProposedItem) []model.ProposedItem {
	out := make([]model.ProposedItem, 0)
	for _, it := range items {
		if g.skipReason(it.TargetCollection, it.Action) != "" {
			out = append(out, it)
		}
	}
	return out
}

func (g *WriteGate) skipReason(collection string, action model.Action) string {
	if action != model.ActionInsert {
		return model.SkipUnsupportedAction
	}
	if !g.allow.Known(collection) {
		return model.SkipUnknownCollection
	}
	return ""
}
