package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasa-impact/csda-go"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

// run executes the csda command against server with args and returns its
// stdout and stderr.
func run(t *testing.T, server *httptest.Server, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	a := &app{
		v:      viper.New(),
		stdout: &stdout,
		stderr: &stderr,
		newClient: func(context.Context) (*csda.Client, error) {
			return csda.New(csda.WithBaseURL(server.URL)), nil
		},
	}
	t.Cleanup(func() {
		if a.cleanup != nil {
			_ = a.cleanup()
		}
	})

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func mustEncode(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic("failed to encode response: " + err.Error())
	}
}

func TestVendorsCommand_Text(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/signup/vendors/api/vendors/", r.URL.Path)
		mustEncode(w, []map[string]any{
			{"id": 1, "name": "planet", "full_name": "Planet Labs", "slug": "planet", "has_tasking": true},
		})
	}))
	defer server.Close()

	stdout, _, err := run(t, server, "vendors")

	require.NoError(t, err)
	assert.Contains(t, stdout, "SLUG")
	assert.Contains(t, stdout, "Planet Labs")
}

func TestProductsCommand_JSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("vendor"))
		mustEncode(w, []map[string]any{{"id": 3, "slug": "skysat", "name": "SkySat", "long_desc": ""}})
	}))
	defer server.Close()

	stdout, _, err := run(t, server, "products", "--vendor", "7", "-o", "json")

	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":3,"slug":"skysat","name":"SkySat","long_desc":""}]`, stdout)
}

func TestProductsCommand_RequiresVendor(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, _, err := run(t, server, "products")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "vendor")
}

func TestDownloadCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/download/c/i/a", r.URL.Path)
		_, _ = w.Write([]byte("payload"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "a.bin")
	_, stderr, err := run(t, server, "download", "c", "i", "a", "--dest", dest)

	require.NoError(t, err)
	assert.Contains(t, stderr, "OK")
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestDownloadItemCommand_NoCollection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	}))
	defer server.Close()

	itemFile := filepath.Join(t.TempDir(), "item.json")
	require.NoError(t, os.WriteFile(itemFile, []byte(`{"id":"scene-1"}`), 0o600))

	_, _, err := run(t, server, "download-item", itemFile, "visual")

	require.Error(t, err)
	assert.ErrorIs(t, err, csda.ErrPrecondition)
}

func TestBulkDownloadCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v2/download/c/bad/a" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer server.Close()

	dir := t.TempDir()
	manifest := filepath.Join(dir, "assets.csv")
	require.NoError(t, os.WriteFile(manifest, []byte("collection_id,item_id,asset_key\nc,good,a\nc,bad,a\n"), 0o600))
	outDir := filepath.Join(dir, "out")

	_, stderr, err := run(t, server, "bulk-download", manifest, "--out-dir", outDir, "-w", "2")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 downloads failed")
	assert.Contains(t, stderr, "1 downloaded, 0 skipped, 1 failed")

	data, err := os.ReadFile(filepath.Join(outDir, "c", "good", "a"))
	require.NoError(t, err)
	assert.Equal(t, "/api/v2/download/c/good/a", string(data))
}

func TestVersionCommand(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	stdout, _, err := run(t, server, "version", "-o", "yaml")

	require.NoError(t, err)
	assert.Contains(t, stdout, "version: "+csda.Version)
}

func TestInvalidOutputFormat(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, _, err := run(t, server, "version", "-o", "xml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration error")
}

func TestVendorsCommand_EmptyJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mustEncode(w, []any{})
	}))
	defer server.Close()

	stdout, _, err := run(t, server, "vendors", "-o", "json")

	require.NoError(t, err)
	assert.JSONEq(t, `[]`, stdout)
}

func TestProfileCommand_RequiresUsername(t *testing.T) {
	t.Setenv("CSDA_USERNAME", "")
	t.Setenv(csda.EnvUsername, "")
	t.Setenv("CSDA_PASSWORD", "")
	t.Setenv(csda.EnvPassword, "")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	}))
	defer server.Close()

	_, _, err := run(t, server, "profile")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "username is required")
	assert.Contains(t, err.Error(), csda.EnvUsername)
	assert.NotContains(t, err.Error(), "--netrc")
}

func TestBulkDownloadCommand_TruncatedDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "10000")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(make([]byte, 100))
		w.(http.Flusher).Flush()

		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		_ = conn.Close()
	}))
	defer server.Close()

	dir := t.TempDir()
	manifest := filepath.Join(dir, "assets.csv")
	require.NoError(t, os.WriteFile(manifest, []byte("c,i,a\n"), 0o600))
	outDir := filepath.Join(dir, "out")

	_, stderr, err := run(t, server, "bulk-download", manifest, "--out-dir", outDir)

	require.Error(t, err)
	assert.Contains(t, stderr, "0 downloaded, 0 skipped, 1 failed")
	assert.NoFileExists(t, filepath.Join(outDir, "c", "i", "a"))
	assert.NoFileExists(t, filepath.Join(outDir, "c", "i", "a.part"))
}
