package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhpenta/creatorflow"
)

func TestOutcome(t *testing.T) {
	stageErr := &creatorflow.StageError{
		Stage: creatorflow.StageImage,
		Err:   creatorflow.NewProviderError(creatorflow.KindNoOutput, "gemini", creatorflow.OpSynthesizeImage, nil),
	}

	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: OutcomeOK},
		{err: &creatorflow.ValidationError{Field: "file", Err: creatorflow.ErrNoReferenceImage}, want: OutcomeValidation},
		{err: fmt.Errorf("stage: %w", context.Canceled), want: OutcomeCanceled},
		{err: stageErr, want: "NO_OUTPUT"},
		{err: context.DeadlineExceeded, want: "TIMEOUT"},
		{err: errors.New("boom"), want: OutcomeError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.err), "err %v", tt.err)
	}
}

func TestCollector_Recorder(t *testing.T) {
	c := NewCollector("test")

	c.ObservePipeline(nil, 2*time.Second)
	c.ObservePipeline(errors.New("boom"), time.Second)
	c.ObserveStage(creatorflow.StagePrompt, nil, 300*time.Millisecond)
	c.ObserveProviderCall("gemini", creatorflow.OpSynthesizeImage, nil, 4*time.Second)
	c.IncProviderRetry("gemini", creatorflow.OpSynthesizeImage, creatorflow.KindRateLimited)
	c.IncProviderRetry("gemini", creatorflow.OpSynthesizeImage, creatorflow.KindRateLimited)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.pipelineRuns.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pipelineRuns.WithLabelValues(OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.providerCalls.WithLabelValues("gemini", creatorflow.OpSynthesizeImage, OutcomeOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.providerRetries.WithLabelValues("gemini", creatorflow.OpSynthesizeImage, "RATE_LIMITED")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.stageDuration))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("creatorflow")
	c.RecordHTTPRequest("POST", "/api/v1/generate", 200, 150*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body),
		`creatorflow_http_requests_total{method="POST",path="/api/v1/generate",status="200"} 1`))
	assert.Contains(t, string(body), "go_goroutines")
}
