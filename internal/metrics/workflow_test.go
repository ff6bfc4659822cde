package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflow(t *testing.T) {
	reg := prometheus.NewRegistry()
	w, err := NewWorkflow(reg)
	require.NoError(t, err)

	w.ProposalCreated("text")
	w.ProposalCreated("text")
	w.Decision("approve", "ok")
	w.Item("FireSafety", "applied")
	w.Item("UnknownTable", "unknown_collection")

	assert.Equal(t, 2.0, testutil.ToFloat64(w.proposalsCreated.WithLabelValues("text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(w.decisions.WithLabelValues("approve", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(w.items.WithLabelValues("UnknownTable", "unknown_collection")))
}

func TestWorkflow_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewWorkflow(reg)
	require.NoError(t, err)

	_, err = NewWorkflow(reg)
	assert.Error(t, err)
}

func TestWorkflow_NilIsNoop(t *testing.T) {
	var w *Workflow
	assert.NotPanics(t, func() {
		w.ProposalCreated("manual")
		w.Decision("reject", "ok")
		w.Item("FireSafety", "applied")
	})
}
