package scheduler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	runs int
	err  error
}

func (j *stubJob) Run() error {
	j.runs++
	return j.err
}

func (j *stubJob) Name() string { return "stub" }

func TestScheduler_RunNowReportsResult(t *testing.T) {
	s := New(zerolog.Nop())

	var results []error
	s.OnResult(func(job string, err error) {
		assert.Equal(t, "stub", job)
		results = append(results, err)
	})

	ok := &stubJob{}
	require.NoError(t, s.RunNow(ok))

	failing := &stubJob{err: errors.New("boom")}
	assert.EqualError(t, s.RunNow(failing), "boom")

	assert.Equal(t, 1, ok.runs)
	require.Len(t, results, 2)
	assert.NoError(t, results[0])
	assert.Error(t, results[1])
}

func TestScheduler_AddJobValidatesSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	assert.NoError(t, s.AddJob("0 */30 * * * *", &stubJob{}))
	assert.NoError(t, s.AddJob("@every 1h", &stubJob{}))
	assert.Error(t, s.AddJob("every tuesday", &stubJob{}))

	s.Start()
	s.Stop()
}
