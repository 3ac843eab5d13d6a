package main

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/drive-notes/config"
	redisadapter "github.com/target/drive-notes/internal/adapters/redis"
	domainauth "github.com/target/drive-notes/internal/domain/auth"
	"github.com/target/drive-notes/internal/domain/progress"
)

func TestParseRevokeSessionsFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "user with yes", args: []string{"--user", "u1", "--yes"}},
		{name: "all dry run", args: []string{"--all", "--dry-run"}},
		{name: "neither", args: []string{"--yes"}, wantErr: "exactly one"},
		{name: "both", args: []string{"--all", "--user", "u1", "--yes"}, wantErr: "exactly one"},
		{name: "unconfirmed", args: []string{"--user", "u1"}, wantErr: "--yes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRevokeSessionsFlags(tt.args)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestParseSummaryFlags(t *testing.T) {
	opts, err := parseListSummariesFlags([]string{"--user", "u1"})
	require.NoError(t, err)
	assert.Equal(t, 50, opts.Limit)

	_, err = parseListSummariesFlags(nil)
	require.ErrorContains(t, err, "--user")

	_, err = parseForgetSummaryFlags([]string{"--user", "u1"})
	require.ErrorContains(t, err, "--file")

	_, err = parseMigrateFlags([]string{"--timeout", "0s"})
	require.Error(t, err)
}

func TestPrintSummaries(t *testing.T) {
	var buf bytes.Buffer
	err := printSummaries(&buf, "u1", []progress.Summary{{
		FileID:    "f1",
		Filename:  "report.pdf",
		Phase:     progress.PhaseFailed,
		Reason:    "OCR failed",
		UpdatedAt: time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC),
	}})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Stored summaries for u1")
	assert.Contains(t, out, "report.pdf")
	assert.Contains(t, out, "2026-04-02T10:00:00Z")
	assert.Contains(t, out, "Total: 1")

	buf.Reset()
	require.NoError(t, printSummaries(&buf, "u2", nil))
	assert.Contains(t, buf.String(), "(none)")
}

func TestPrintSessionsSortsAndFilters(t *testing.T) {
	sessions := []redisadapter.StoredSession{
		{Session: domainauth.Session{ID: "s2", UserID: "u2", Role: domainauth.RoleUser}, TTL: time.Hour},
		{Session: domainauth.Session{ID: "s1", UserID: "u1", Role: domainauth.RoleAdmin}, TTL: -1 * time.Second},
	}

	var buf bytes.Buffer
	require.NoError(t, printSessions(&buf, sessions))
	out := buf.String()
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("s1")), bytes.Index(buf.Bytes(), []byte("s2")))
	assert.Contains(t, out, "no expiry")
	assert.Contains(t, out, "Total sessions: 2")

	assert.Len(t, filterSessions(sessions, "u2"), 1)
	assert.Len(t, filterSessions(sessions, ""), 2)
}

func TestRenderTTL(t *testing.T) {
	assert.Equal(t, "no expiry", renderTTL(-1*time.Second))
	assert.Equal(t, "key missing", renderTTL(-2*time.Second))
	assert.Equal(t, "1m30s", renderTTL(90*time.Second))
}

func TestRunUsageErrors(t *testing.T) {
	noConfig := func() (config.AppConfig, error) {
		t.Fatal("config must not load for usage errors")
		return config.AppConfig{}, nil
	}

	var stderr bytes.Buffer
	assert.Equal(t, exitUsage, run(nil, io.Discard, &stderr, noConfig))
	assert.Contains(t, stderr.String(), "revoke-sessions")

	stderr.Reset()
	assert.Equal(t, exitUsage, run([]string{"bogus"}, io.Discard, &stderr, noConfig))
	assert.Contains(t, stderr.String(), `unknown command "bogus"`)
}

func TestRunConfigFailure(t *testing.T) {
	failing := func() (config.AppConfig, error) { return config.AppConfig{}, errors.New("bad env") }
	assert.Equal(t, exitFailure, run([]string{"migrate"}, io.Discard, io.Discard, failing))
}

func TestRunRedisCommandWithoutRedis(t *testing.T) {
	cfg := func() (config.AppConfig, error) { return config.AppConfig{}, nil }
	assert.Equal(t, exitFailure, run([]string{"list-sessions"}, io.Discard, io.Discard, cfg))
}

func TestUsageListsCommandsInOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))
	out := buf.String()
	for i := 1; i < len(commandTable); i++ {
		assert.Less(t, strings.Index(out, commandTable[i-1].name), strings.Index(out, commandTable[i].name))
	}
}
