package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"gamewatch/internal/core"
	"gamewatch/internal/types"
)

func TestCoreHooks(t *testing.T) {
	m := New(prometheus.NewRegistry())
	hooks := m.CoreHooks()

	hooks.OnCycle(core.TriggerTimer, core.Report{Duration: time.Second})
	hooks.OnCycle(core.TriggerManual, core.Report{FetchErr: errors.New("down")})
	hooks.OnSkipped(core.TriggerManual)
	hooks.OnFetchError(types.FetchStatus)
	hooks.OnMedia(types.MediaAttachBytes, false)
	hooks.OnMedia(types.MediaAttachBytes, true)
	hooks.OnDispatch(core.Sent, nil)
	hooks.OnDispatch(core.Suppressed, &types.PublishError{Kind: types.PublishPermissionDenied})
	hooks.OnFlushError()

	if got := testutil.ToFloat64(m.CyclesTotal.WithLabelValues(core.TriggerTimer)); got != 1 {
		t.Errorf("timer cycles = %v", got)
	}
	if got := testutil.ToFloat64(m.CyclesSkipped.WithLabelValues(core.TriggerManual)); got != 1 {
		t.Errorf("skipped = %v", got)
	}
	if got := testutil.ToFloat64(m.FetchErrors.WithLabelValues("status")); got != 1 {
		t.Errorf("fetch errors = %v", got)
	}
	if got := testutil.ToFloat64(m.Announcements.WithLabelValues("sent", "")); got != 1 {
		t.Errorf("sent = %v", got)
	}
	if got := testutil.ToFloat64(m.Announcements.WithLabelValues("suppressed", "permission_denied")); got != 1 {
		t.Errorf("suppressed = %v", got)
	}
	if got := testutil.ToFloat64(m.MediaDecisions.WithLabelValues("attach_bytes", "true")); got != 1 {
		t.Errorf("cached media = %v", got)
	}
	if got := testutil.ToFloat64(m.StateFlushFailures); got != 1 {
		t.Errorf("flush failures = %v", got)
	}
	if got := testutil.ToFloat64(m.LastSuccess); got == 0 {
		t.Error("last success timestamp not set")
	}
	if got := testutil.CollectAndCount(m.CycleDuration); got != 1 {
		t.Errorf("duration series = %d", got)
	}
}
