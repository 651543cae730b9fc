package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pscheid92/wagate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSessionsFixture(t *testing.T, records []domain.SessionRecord) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.json")
	data, err := json.Marshal(records)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func readSessions(t *testing.T, path string) []domain.SessionRecord {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var records []domain.SessionRecord
	require.NoError(t, json.Unmarshal(data, &records))
	return records
}

func executeCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestList(t *testing.T) {
	path := writeSessionsFixture(t, []domain.SessionRecord{
		{ID: "s1", Description: "Sales", Ready: true},
		{ID: "s2", Description: "Support"},
	})

	stdout, err := executeCLI(t, "list", "--backend", "file", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "ID")
	assert.Contains(t, stdout, "s1")
	assert.Contains(t, stdout, "Support")
}

func TestListJSON(t *testing.T) {
	path := writeSessionsFixture(t, []domain.SessionRecord{{ID: "s1", Description: "Sales"}})

	stdout, err := executeCLI(t, "list", "--json", "--backend", "file", "--file", path)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"s1","description":"Sales","ready":false}]`, stdout)
}

func TestRemove(t *testing.T) {
	path := writeSessionsFixture(t, []domain.SessionRecord{{ID: "s1"}, {ID: "s2"}})

	stdout, err := executeCLI(t, "remove", "s1", "--backend", "file", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "removed s1")
	assert.Equal(t, []domain.SessionRecord{{ID: "s2"}}, readSessions(t, path))
}

func TestRemoveUnknown(t *testing.T) {
	path := writeSessionsFixture(t, []domain.SessionRecord{{ID: "s1"}})

	_, err := executeCLI(t, "remove", "ghost", "--backend", "file", "--file", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"ghost" not found`)
}

func TestReset(t *testing.T) {
	path := writeSessionsFixture(t, []domain.SessionRecord{{ID: "s1", Ready: true}, {ID: "s2", Ready: true}})

	_, err := executeCLI(t, "reset", "--backend", "file", "--file", path)
	require.NoError(t, err)
	for _, r := range readSessions(t, path) {
		assert.False(t, r.Ready, r.ID)
	}
}

func TestRemoveRequiresID(t *testing.T) {
	_, err := executeCLI(t, "remove")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	stdout, err := executeCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "wagate dev")
}
