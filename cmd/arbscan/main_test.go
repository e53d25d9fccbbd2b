package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arbscan.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestKeysCreate(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, fmt.Sprintf(`
[storage]
driver = "sqlite"
sqlite_path = %q

[auth]
pepper = "test-pepper"
`, filepath.Join(dir, "keys.db")))

	out, err := run(t, "--config", cfg, "keys", "create", "--tier", "pro", "--owner", "ops")
	require.NoError(t, err)
	assert.Regexp(t, `^sb_pro_[0-9a-f]{32}\n$`, out)
}

func TestKeysCreate_Rejects(t *testing.T) {
	cfg := writeConfig(t, `
[storage]
driver = "sqlite"
sqlite_path = ":memory:"
`)

	_, err := run(t, "--config", cfg, "keys", "create", "--tier", "platinum")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tier")

	_, err = run(t, "--config", cfg, "keys", "create", "--tier", "free")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pepper")
}

func TestScan_JSON(t *testing.T) {
	venues := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/events"):
			_, _ = w.Write([]byte(`{"events":[]}`))
		case strings.HasSuffix(r.URL.Path, "/markets"):
			_, _ = w.Write([]byte(`[]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer venues.Close()

	cfg := writeConfig(t, fmt.Sprintf(`
[kalshi]
base_url = %q

[polymarket]
gamma_host = %q
`, venues.URL, venues.URL))

	out, err := run(t, "--config", cfg, "scan", "--json")
	require.NoError(t, err)

	var res struct {
		Metadata struct {
			MarketsScanned int `json:"markets_scanned"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Zero(t, res.Metadata.MarketsScanned)
}

func TestScan_UnknownKind(t *testing.T) {
	_, err := run(t, "--config", "", "scan", "--kind", "crypto")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scan kind")
}
