package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ahrav/go-essay-judge/internal/application"
	"github.com/ahrav/go-essay-judge/internal/testutils"
)

func setup(t *testing.T) (application.Config, options) {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "batch.yaml")
	essays := testutils.GenerateSampleEssays(6, 5)
	require.NoError(t, testutils.SaveBatch(testutils.ToBatch("Smoke Test", essays, 250, 500), input))

	cfg, err := application.LoadConfig("")
	require.NoError(t, err)
	cfg.Tokenizer.Mode = "naive"
	cfg.Storage.Path = filepath.Join(dir, "essays.db")

	return cfg, options{inputPath: input, timeout: 10 * time.Second}
}

// TestRun_Reports prints one JSON report per essay.
func TestRun_Reports(t *testing.T) {
	cfg, opts := setup(t)
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), cfg, opts, zap.NewNop(), prometheus.NewRegistry(), &out))

	sc := bufio.NewScanner(&out)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lines := 0
	for sc.Scan() {
		var line essayReport
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		require.NotNil(t, line.Report, line.ID)
		assert.Empty(t, line.Error)
		assert.Len(t, line.Report.Outcomes, 4)
		lines++
	}
	assert.Equal(t, 6, lines)
}

// TestRun_Leaderboard enters the batch into a competition and prints the
// ranked entries of the essays inside the word band.
func TestRun_Leaderboard(t *testing.T) {
	cfg, opts := setup(t)
	opts.leaderboard = true
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), cfg, opts, zap.NewNop(), prometheus.NewRegistry(), &out))

	var got struct {
		Competition string `json:"competition"`
		Entries     []struct {
			Rank  int     `json:"rank"`
			Total float64 `json:"total"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "Smoke Test", got.Competition)
	for i := 1; i < len(got.Entries); i++ {
		assert.GreaterOrEqual(t, got.Entries[i-1].Total, got.Entries[i].Total)
		assert.LessOrEqual(t, got.Entries[i-1].Rank, got.Entries[i].Rank)
	}
}

// TestRun_MissingInput fails before building the engine.
func TestRun_MissingInput(t *testing.T) {
	cfg, opts := setup(t)
	opts.inputPath = filepath.Join(t.TempDir(), "absent.yaml")

	err := run(context.Background(), cfg, opts, zap.NewNop(), prometheus.NewRegistry(), os.Stdout)
	assert.Error(t, err)
}
