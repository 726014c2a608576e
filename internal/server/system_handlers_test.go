package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemStatus(t *testing.T) {
	s, container := newTestServer(t)
	_, token := registerUser(t, container, "ops")

	rec := doRequest(t, s, http.MethodGet, "/api/system/status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, 12.5, status.CPUPercent)
	assert.Equal(t, 40.0, status.MemoryPercent)
	assert.Greater(t, status.Goroutines, 0)
	require.Len(t, status.Databases, 3)
	assert.Greater(t, status.Databases["catalog"].PageCount, int64(0))
}

func TestSystemStatus_HostStatsFailure(t *testing.T) {
	s, container := newTestServer(t)
	_, token := registerUser(t, container, "ops")
	s.systemHandlers.cpuPercent = func(time.Duration, bool) ([]float64, error) {
		return nil, errors.New("no /proc")
	}

	rec := doRequest(t, s, http.MethodGet, "/api/system/status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Zero(t, status.CPUPercent)
	assert.Equal(t, 40.0, status.MemoryPercent)
}

func TestJobsStatusAndTrigger(t *testing.T) {
	s, container := newTestServer(t)
	_, token := registerUser(t, container, "ops")

	rec := doRequest(t, s, http.MethodGet, "/api/system/jobs", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var before JobsStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &before))
	require.Len(t, before.Jobs, 3)
	for _, job := range before.Jobs {
		assert.Nil(t, job.LastRun, job.Name)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/system/jobs/nope", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/system/jobs/cache_cleanup", token, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		run, err := container.JobHistoryRepo.Get(context.Background(), "cache_cleanup")
		return err == nil && run != nil
	}, 2*time.Second, 20*time.Millisecond)

	rec = doRequest(t, s, http.MethodGet, "/api/system/jobs", token, nil)
	var after JobsStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))

	var cleanup *JobStatus
	for i := range after.Jobs {
		if after.Jobs[i].Name == "cache_cleanup" {
			cleanup = &after.Jobs[i]
		}
	}
	require.NotNil(t, cleanup)
	require.NotNil(t, cleanup.LastRun)
	assert.Equal(t, "success", cleanup.LastRun.LastStatus)
}
