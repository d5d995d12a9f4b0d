// -- cmd/normalize_test.go --
package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/auditlens/auditlens/internal/config"
	"github.com/auditlens/auditlens/internal/engine"
)

// executeCommand runs the root command with args and returns captured stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Flag variables are package globals; reset them so tests stay isolated.
	normalizeCategory = "static"
	normalizeTool = ""
	normalizeFinding = ""
	normalizeStore = false
	reportCategory = "static"
	appConfig = config.Config{}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// writeEnvelope drops a raw report envelope into a temp file and returns its path.
func writeEnvelope(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const staticEnvelope = `{"results": {"services": {"static": {"analysis": {
	"bandit": {"issues": [{
		"issue_severity": "HIGH",
		"issue_text": "hardcoded password",
		"filename": "app.py",
		"line_number": 12,
		"test_id": "B105"
	}]}
}}}}}`

func TestNormalizeCommand(t *testing.T) {
	path := writeEnvelope(t, "static.json", staticEnvelope)

	output, err := executeCommand(t, "normalize", path)
	require.NoError(t, err)

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(output), &report))
	assert.Equal(t, "static", report["category"])

	findings, ok := report["findings"].([]interface{})
	require.True(t, ok)
	require.Len(t, findings, 1)
	finding := findings[0].(map[string]interface{})
	assert.Equal(t, "high", finding["severity"])
	assert.Equal(t, "hardcoded password", finding["message"])
}

func TestNormalizeCommandToolView(t *testing.T) {
	path := writeEnvelope(t, "static.json", staticEnvelope)

	output, err := executeCommand(t, "normalize", "--tool", "bandit", path)
	require.NoError(t, err)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(output), &data))
	summary := data["summary"].(map[string]interface{})
	assert.Equal(t, "bandit", summary["name"])
	assert.Equal(t, float64(1), summary["total_issues"])
}

func TestNormalizeCommandFindingView(t *testing.T) {
	path := writeEnvelope(t, "static.json", staticEnvelope)

	t.Run("existing finding", func(t *testing.T) {
		output, err := executeCommand(t, "normalize", "--finding", "bandit-0", path)
		require.NoError(t, err)

		var detail map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(output), &detail))
		assert.Equal(t, "B105", detail["title"])
		assert.Equal(t, "app.py:12", detail["location"])
	})

	t.Run("unknown finding prints null", func(t *testing.T) {
		output, err := executeCommand(t, "normalize", "--finding", "nope-99", path)
		require.NoError(t, err)
		assert.Equal(t, "null\n", output)
	})
}

func TestNormalizeCommandStore(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)

	original := newDBPool
	newDBPool = func(ctx context.Context, url string) (dbPool, error) {
		// The store must run on a live context; normalization finishing must
		// not have canceled it.
		require.NoError(t, ctx.Err())
		return mock, nil
	}
	t.Cleanup(func() { newDBPool = original })

	mock.ExpectPing()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reports").
		WithArgs(pgxmock.AnyArg(), "static", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"findings"}, []string{"id", "report_id", "tool",
		"category", "language", "severity", "message", "file", "line", "rule_id",
		"url", "metric", "value", "status", "raw"}).
		WillReturnResult(1)
	mock.ExpectCommit()
	mock.ExpectRollback()

	path := writeEnvelope(t, "static.json", staticEnvelope)
	output, err := executeCommand(t, "normalize", "--store", path)
	require.NoError(t, err)
	assert.Contains(t, output, `"category": "static"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizeCommandManyFiles(t *testing.T) {
	// The fan-out over input files must not leave worker goroutines behind.
	defer goleak.VerifyNone(t)

	args := []string{"normalize"}
	for i := 0; i < 8; i++ {
		args = append(args, writeEnvelope(t, "static.json", staticEnvelope))
	}

	output, err := executeCommand(t, args...)
	require.NoError(t, err)
	// One full report per input file, in argument order.
	assert.Equal(t, 8, bytes.Count([]byte(output), []byte(`"category": "static"`)))
}

func TestNormalizeCommandErrors(t *testing.T) {
	t.Run("unknown category", func(t *testing.T) {
		path := writeEnvelope(t, "static.json", staticEnvelope)
		_, err := executeCommand(t, "normalize", "--category", "quantum", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown category")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := executeCommand(t, "normalize", filepath.Join(t.TempDir(), "absent.json"))
		require.Error(t, err)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		path := writeEnvelope(t, "broken.json", `{"results": `)
		_, err := executeCommand(t, "normalize", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode")
	})
}

func TestReportCommand(t *testing.T) {
	path := writeEnvelope(t, "static.json", staticEnvelope)

	output, err := executeCommand(t, "report", path, path)
	require.NoError(t, err)
	assert.Contains(t, output, "high: 2")
	assert.Contains(t, output, "total: 2")
}

func TestParseCategory(t *testing.T) {
	for _, valid := range []string{"static", "dynamic", "performance", "ai"} {
		category, err := parseCategory(valid)
		require.NoError(t, err)
		assert.Equal(t, engine.Category(valid), category)
	}

	_, err := parseCategory("linting")
	assert.Error(t, err)
}

func TestVariantTable(t *testing.T) {
	appConfig = config.Config{}
	assert.Nil(t, variantTable(), "unconfigured resolver falls back to defaults")

	appConfig.Resolver.Variants = map[string][]string{"static": {"code-scan"}}
	table := variantTable()
	require.NotNil(t, table)
	assert.Equal(t, []string{"code-scan"}, table[engine.CategoryStatic])
}
