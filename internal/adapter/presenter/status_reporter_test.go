package presenter_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/align/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/align/internal/application/port/output"
)

func TestStatusReporter_LoadingAndProgress(t *testing.T) {
	r := presenter.NewStatusReporter(time.Minute)

	r.Progress(30)
	_, ok := r.Current()
	assert.False(t, ok, "progress without loading is ignored")

	r.Report(output.StatusLoading, "Generating mockup...")
	st, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, output.StatusLoading, st.Kind)
	assert.Equal(t, 0, st.Percent)

	r.Progress(40)
	st, _ = r.Current()
	assert.Equal(t, 40, st.Percent)

	r.Progress(250)
	st, _ = r.Current()
	assert.Equal(t, 100, st.Percent)
}

func TestStatusReporter_SuccessExpires(t *testing.T) {
	r := presenter.NewStatusReporter(20 * time.Millisecond)

	r.Report(output.StatusSuccess, "Mockup generated")
	st, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, -1, st.Percent)

	assert.Eventually(t, func() bool {
		_, ok := r.Current()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestStatusReporter_ErrorPersists(t *testing.T) {
	r := presenter.NewStatusReporter(time.Millisecond)

	r.Report(output.StatusError, "generation failed")
	time.Sleep(10 * time.Millisecond)

	st, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, output.StatusError, st.Kind)

	r.Progress(50)
	st, _ = r.Current()
	assert.Equal(t, -1, st.Percent, "progress does not touch an error")

	r.Clear()
	_, ok = r.Current()
	assert.False(t, ok)
}

func TestStatusReporter_Subscribe(t *testing.T) {
	r := presenter.NewStatusReporter(time.Minute)

	var mu sync.Mutex
	var seen []output.Status
	cancel := r.Subscribe(func(st output.Status) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})

	r.Report(output.StatusLoading, "Uploading image...")
	r.Progress(10)
	r.Report(output.StatusSuccess, "Image uploaded")
	r.Clear()
	cancel()
	r.Report(output.StatusLoading, "not delivered")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 4)
	assert.Equal(t, output.StatusLoading, seen[0].Kind)
	assert.Equal(t, 10, seen[1].Percent)
	assert.Equal(t, output.StatusSuccess, seen[2].Kind)
	assert.Equal(t, output.StatusKind(""), seen[3].Kind)
}
