package handler

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencyworks/siteworks/internal/scheduler"
	"github.com/agencyworks/siteworks/internal/testutil"
)

func newTestJobsHandler(t *testing.T, env *testEnv) (*JobsHandler, *atomic.Int32) {
	t.Helper()
	registry := scheduler.NewRegistry(cron.New(), testutil.TestLoggerSilent())
	runs := &atomic.Int32{}
	require.NoError(t, registry.Register(scheduler.JobSitemaps, "Regenerate sitemaps", "@hourly", func() { runs.Add(1) }))
	return NewJobsHandler(registry, env.events, testutil.TestLoggerSilent()), runs
}

func TestJobsList(t *testing.T) {
	env := newTestEnv(t)
	h, _ := newTestJobsHandler(t, env)

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/admin/api/jobs", nil))

	require.Equal(t, http.StatusOK, w.Code)
	jobs, ok := decodeBody(t, w)["jobs"].([]any)
	require.True(t, ok)
	require.Len(t, jobs, 1)
	assert.Equal(t, scheduler.JobSitemaps, jobs[0].(map[string]any)["name"])
}

func TestJobsRun(t *testing.T) {
	env := newTestEnv(t)
	h, runs := newTestJobsHandler(t, env)

	run := func(name string) int {
		w := httptest.NewRecorder()
		h.Run(w, withURLParam(jsonRequest(t, http.MethodPost, "/admin/api/jobs/"+name+"/run", nil), "name", name))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, run(scheduler.JobSitemaps))
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, http.StatusTooManyRequests, run(scheduler.JobSitemaps))
	assert.Equal(t, http.StatusNotFound, run("reindex"))
	assert.Equal(t, int32(1), runs.Load())
}

func TestJobsUpdateSchedule(t *testing.T) {
	env := newTestEnv(t)
	h, _ := newTestJobsHandler(t, env)

	tests := []struct {
		name         string
		job          string
		schedule     string
		wantStatus   int
		wantSchedule string
	}{
		{"override", scheduler.JobSitemaps, "*/30 * * * *", http.StatusOK, "*/30 * * * *"},
		{"invalid", scheduler.JobSitemaps, "whenever", http.StatusBadRequest, "*/30 * * * *"},
		{"reset", scheduler.JobSitemaps, "", http.StatusOK, "@hourly"},
		{"unknown job", "reindex", "@daily", http.StatusNotFound, "@hourly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := withURLParam(jsonRequest(t, http.MethodPut, "/admin/api/jobs/"+tt.job,
				map[string]string{"schedule": tt.schedule}), "name", tt.job)
			h.UpdateSchedule(w, req)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantSchedule, h.registry.List()[0].Schedule)
		})
	}
}
