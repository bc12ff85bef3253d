package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyqueue/obs-scheduler/pkg/core/model"
	"github.com/skyqueue/obs-scheduler/pkg/core/observation"
	"github.com/skyqueue/obs-scheduler/pkg/core/priority"
	"github.com/skyqueue/obs-scheduler/pkg/core/scheduler"
)

func tickedSet(t *testing.T) *observation.Set {
	t.Helper()
	table, err := priority.NewTable(priority.DefaultSpreadConfig())
	require.NoError(t, err)

	set := observation.NewSet(table)
	gn := model.ValidSiteTimes{0: model.NewSiteSet(model.SiteGN)}
	gs := model.ValidSiteTimes{0: model.NewSiteSet(model.SiteGS)}

	_, err = set.Add(model.Band2, gn, 200, 150)
	require.NoError(t, err)
	_, err = set.Add(model.Band2, gs, 400, 100)
	require.NoError(t, err)
	_, err = set.Add(model.Band1, gs, 300, 250)
	require.NoError(t, err)

	set.Tick(0)
	return set
}

func TestRecorder_ObserveTick(t *testing.T) {
	set := tickedSet(t)
	plan, err := scheduler.NewMatchingOptimizer().Plan(set, set.Ordered())
	require.NoError(t, err)

	r := NewRecorder()
	r.ObserveTick(set, plan, 2*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Ticks))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.BandObservations.WithLabelValues("2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.BandObservations.WithLabelValues("1")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.BandObservations.WithLabelValues("4")))
	assert.InDelta(t, set.PriorityOf(0), testutil.ToFloat64(r.BandMaxPriority.WithLabelValues("2")), 1e-9)
	assert.InDelta(t, (0.75+0.25)/2, testutil.ToFloat64(r.BandMeanCompletion.WithLabelValues("2")), 1e-9)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.SiteAssignments.WithLabelValues("GN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.SiteAssignments.WithLabelValues("GS")))
	assert.InDelta(t, plan.Objective, testutil.ToFloat64(r.PlanObjective), 1e-9)
}

func TestRecorder_ObserveTickWithoutPlan(t *testing.T) {
	r := NewRecorder()
	r.ObserveTick(tickedSet(t), nil, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Ticks))
	assert.Equal(t, 0, testutil.CollectAndCount(r.SiteAssignments))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveTick(tickedSet(t), nil, time.Millisecond)

	path := filepath.Join(t.TempDir(), "obs.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "obs_scheduler_ticks_total 1")
	assert.Contains(t, string(data), `obs_scheduler_band_observations{band="2"} 2`)
}
