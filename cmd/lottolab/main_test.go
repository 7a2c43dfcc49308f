package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/lottolab/internal/domain"
)

// setupEnv points the configuration at a temporary data directory and writes a
// quina history of n draws to a CSV file, returning its path
func setupEnv(t *testing.T, n int) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("LOTTOLAB_DATA_DIR", dir)
	t.Setenv("LOTTOLAB_CACHE_BACKEND", "memory")
	t.Setenv("LOTTOLAB_ENGINE_CONFIG", "")
	t.Setenv("LOTTOLAB_REPORTS_BUCKET", "")

	var b strings.Builder
	b.WriteString("contest,date,n1,n2,n3,n4,n5\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%d,%s", i, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 3*i).Format("2006-01-02"))
		for k := 0; k < 5; k++ {
			fmt.Fprintf(&b, ",%d", (i*7+k*13)%80+1)
		}
		b.WriteString("\n")
	}

	path := filepath.Join(dir, "quina.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeAnalysis(t *testing.T, out string) domain.Analysis {
	t.Helper()
	var a domain.Analysis
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	return a
}

func TestImportAndLotteries(t *testing.T) {
	path := setupEnv(t, 30)

	out, err := run(t, "import", "--lottery", "quina", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 30 quina draws (latest contest 30, 30 stored)")

	// Re-importing replaces instead of duplicating
	_, err = run(t, "import", "-l", "quina", path)
	require.NoError(t, err)

	out, err = run(t, "lotteries")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "quina ") {
			assert.True(t, strings.HasSuffix(strings.TrimSpace(line), "30"), line)
		}
		if strings.HasPrefix(line, "megasena ") {
			assert.True(t, strings.HasSuffix(strings.TrimSpace(line), "0"), line)
		}
	}
}

func TestScore_FromStore(t *testing.T) {
	path := setupEnv(t, 30)
	_, err := run(t, "import", "-l", "quina", path)
	require.NoError(t, err)

	out, err := run(t, "score", "-l", "quina", "--format", "json")
	require.NoError(t, err)

	a := decodeAnalysis(t, out)
	assert.Equal(t, domain.AnalysisScores, a.Kind)
	require.NotNil(t, a.Scores)
	require.Len(t, a.Scores.Scores, 80)
	for i := 1; i < len(a.Scores.Scores); i++ {
		assert.GreaterOrEqual(t, a.Scores.Scores[i-1].TotalScore, a.Scores.Scores[i].TotalScore)
	}

	out, err = run(t, "score", "-l", "quina", "--top", "3")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "RANK"))
}

func TestFrequencies_FromFile(t *testing.T) {
	path := setupEnv(t, 30)

	out, err := run(t, "frequencies", "-l", "quina", "-f", path, "--format", "json")
	require.NoError(t, err)

	a := decodeAnalysis(t, out)
	assert.Equal(t, domain.AnalysisFrequency, a.Kind)
	require.NotNil(t, a.Frequency)
	assert.Len(t, a.Frequency.Frequencies, 80)
}

func TestGenerate(t *testing.T) {
	path := setupEnv(t, 30)

	out, err := run(t, "generate", "-l", "quina", "-f", path, "--format", "json",
		"--games", "2", "--population", "20", "--generations", "5", "--seed", "7")
	require.NoError(t, err)

	a := decodeAnalysis(t, out)
	require.NotNil(t, a.Candidates)
	require.Len(t, a.Candidates.Candidates, 2)
	assert.Equal(t, int64(7), a.Candidates.Seed)
	for _, c := range a.Candidates.Candidates {
		assert.Len(t, c.Numbers, 5)
	}
	assert.NotEqual(t, a.Candidates.Candidates[0].Numbers, a.Candidates.Candidates[1].Numbers)
}

func TestBacktest(t *testing.T) {
	path := setupEnv(t, 30)

	out, err := run(t, "backtest", "-l", "quina", "-f", path, "--format", "json",
		"--strategy", "random", "--seed", "3", "--min-history", "20")
	require.NoError(t, err)

	a := decodeAnalysis(t, out)
	require.NotNil(t, a.Backtest)
	assert.Equal(t, 10, a.Backtest.TotalTests)
	assert.Equal(t, "random", a.Backtest.StrategyName)
	assert.Equal(t, "25", a.Backtest.TotalCost.String())

	out, err = run(t, "backtest", "-l", "quina", "-f", path, "--strategy", "most_frequent",
		"--min-history", "20", "--trials")
	require.NoError(t, err)
	assert.Contains(t, out, "Strategy")
	assert.Contains(t, out, "most_frequent")
	assert.Contains(t, out, "CONTEST")
}

func TestLeakage(t *testing.T) {
	path := setupEnv(t, 30)

	out, err := run(t, "leakage", "-l", "quina", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "training 24 draws, test 6 draws")
	assert.Contains(t, out, "no leakage detected")

	_, err = run(t, "leakage", "-l", "quina", "-f", path, "--train-fraction", "1.5")
	assert.True(t, domain.IsConfigurationError(err))
}

func TestErrors(t *testing.T) {
	setupEnv(t, 30)

	_, err := run(t, "score", "-l", "quina")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no draws stored for quina")

	_, err = run(t, "score", "-l", "nope")
	assert.ErrorIs(t, err, domain.ErrUnknownLottery)

	_, err = run(t, "lotteries", "--format", "xml")
	assert.Error(t, err)

	_, err = run(t, "import")
	assert.Error(t, err)
}
