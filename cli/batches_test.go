package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loupesearch/loupe-go/batches"
	"github.com/loupesearch/loupe-go/common"
)

// resetFlags restores every flag of the command tree to its default so flag
// values and Changed markers set by one Execute call do not leak into the
// next. Slice flags need Replace, Set would append to the previous value.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	resetFlags(RootCmd)
	t.Cleanup(func() { resetFlags(RootCmd) })

	buf := new(bytes.Buffer)
	RootCmd.SetOut(buf)
	RootCmd.SetErr(buf)
	RootCmd.SetArgs(args)

	err := RootCmd.Execute()
	return buf.String(), err
}

// TestBatchesList_Table tests the default table rendering
func TestBatchesList_Table(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/batches", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"results": [
				{
					"uid": 42,
					"stats": {"totalNbTasks": 3, "status": {"succeeded": 2, "failed": 1}},
					"startedAt": "2024-10-11T11:49:54.000Z",
					"duration": "PT1.2S",
					"batchStrategy": "time_limit_reached"
				}
			],
			"limit": 20, "total": 1
		}`))
	}))
	defer server.Close()

	out, err := executeCommand(t, "batches", "list", "--host", server.URL)
	require.NoError(t, err)

	assert.Contains(t, out, "UID")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "time_limit_reached")
	assert.Contains(t, out, "1 batches total")
}

// TestBatchesList_JSONWithFilters tests filter flags and JSON output
func TestBatchesList_JSONWithFilters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		assert.Equal(t, "2", query.Get("limit"))
		assert.Equal(t, "40", query.Get("from"))
		assert.Equal(t, "succeeded", query.Get("statuses"))
		assert.Equal(t, "movies", query.Get("indexUids"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[],"limit":2,"total":0}`))
	}))
	defer server.Close()

	out, err := executeCommand(t, "batches", "list",
		"--host", server.URL,
		"--limit", "2",
		"--from", "40",
		"--statuses", "succeeded",
		"--index-uids", "movies",
		"--output", "json",
	)
	require.NoError(t, err)

	var page batches.ResultsPage
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 2, page.Limit)
}

// TestBatchesList_FlagsDoNotLeak tests that filter flags from an earlier run
// are not carried into a later run of the same package-level command
func TestBatchesList_FlagsDoNotLeak(t *testing.T) {
	filtered := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[],"limit":2,"total":0}`))
	}))
	defer filtered.Close()

	_, err := executeCommand(t, "batches", "list",
		"--host", filtered.URL,
		"--limit", "2",
		"--from", "40",
		"--statuses", "succeeded",
	)
	require.NoError(t, err)

	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		assert.Empty(t, query.Get("limit"))
		assert.Empty(t, query.Get("from"))
		assert.Empty(t, query.Get("statuses"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[],"limit":20,"total":0}`))
	}))
	defer plain.Close()

	_, err = executeCommand(t, "batches", "list", "--host", plain.URL)
	require.NoError(t, err)
}

// TestBatchesList_AppliesLoggingConfig tests that logging settings from the
// environment take effect on the global logger before requests are issued
func TestBatchesList_AppliesLoggingConfig(t *testing.T) {
	t.Setenv("LOUPE_LOGGING_LEVEL", "debug")
	t.Setenv("LOUPE_LOGGING_FORMAT", "json")
	t.Cleanup(func() {
		common.SetLogLevel("info")
		common.SetLogFormat("text")
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[],"limit":20,"total":0}`))
	}))
	defer server.Close()

	_, err := executeCommand(t, "batches", "list", "--host", server.URL)
	require.NoError(t, err)

	assert.Equal(t, logrus.DebugLevel, common.Logger.GetLevel())
	_, ok := common.Logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok, "expected JSON formatter")
}

// TestBatchesGet tests fetching a single batch
func TestBatchesGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/batches/99", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"uid": 99, "stats": {"totalNbTasks": 2}, "batchStrategy": "size_limit_reached"}`))
	}))
	defer server.Close()

	out, err := executeCommand(t, "batches", "get", "99", "--host", server.URL)
	require.NoError(t, err)

	assert.Contains(t, out, "uid:")
	assert.Contains(t, out, "99")
	assert.Contains(t, out, "size_limit_reached")
}

// TestBatchesGet_InvalidUid tests argument validation
func TestBatchesGet_InvalidUid(t *testing.T) {
	_, err := executeCommand(t, "batches", "get", "not-a-number", "--host", "http://localhost:7700")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid batch uid")
}

// TestBatchesList_BadTimestampFlag tests RFC 3339 validation of time bounds
func TestBatchesList_BadTimestampFlag(t *testing.T) {
	_, err := executeCommand(t, "batches", "list",
		"--host", "http://localhost:7700",
		"--before-enqueued-at", "yesterday",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--before-enqueued-at")
}

// TestVersionCommand tests the version output
func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "loupe-go/")
}

// TestFormatHelpers tests the table rendering helpers
func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "-", formatStrategy(""))
	assert.Equal(t, "size_limit_reached", formatStrategy(batches.StrategySizeLimitReached))
	assert.Equal(t, "-", formatTime(nil))
	assert.Equal(t, "-", formatDuration(nil))

	d := "PT2S"
	assert.Equal(t, "PT2S", formatDuration(&d))
}
