package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI with args and returns its stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "vexec.yaml")
	cfg := fmt.Sprintf(`
storage:
  backend: local
  path: %s
  compression: zstd
logging:
  level: error
engine_config:
  nprobe: 4096
`, filepath.Join(dir, "data"))
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func jsonl(start, n, dim int) string {
	var sb strings.Builder
	for i := range n {
		vec := make([]string, dim)
		vec[0] = fmt.Sprintf("%d", start+i)
		for d := 1; d < dim; d++ {
			vec[d] = fmt.Sprintf("%d", (start+i)*(d+1)%97)
		}
		fmt.Fprintf(&sb, "{\"id\":%d,\"vector\":[%s]}\n", start+i, strings.Join(vec, ","))
	}
	return sb.String()
}

func TestCLI_Workflow(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)

	input := filepath.Join(dir, "a.jsonl")
	require.NoError(t, os.WriteFile(input, []byte(jsonl(0, 200, 4)), 0o600))

	out, err := execute(t, "", "--config", cfg, "ingest", "--location", "seg/a", "--input", input)
	require.NoError(t, err)
	assert.Contains(t, out, "ingested 200 vectors (dim=4) into seg/a")

	out, err = execute(t, jsonl(1000, 50, 4), "--config", cfg, "ingest", "--location", "seg/b")
	require.NoError(t, err)
	assert.Contains(t, out, "ingested 50 vectors")

	out, err = execute(t, "", "--config", cfg, "merge", "--location", "seg/a", "--from", "seg/b")
	require.NoError(t, err)
	assert.Contains(t, out, "250 vectors")

	out, err = execute(t, "", "--config", cfg, "build", "--location", "seg/a", "--target", "seg/a.ivf",
		"--build-type", "ivf", "--seed", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "built IVFFlatCPU with 250 vectors at seg/a.ivf")

	out, err = execute(t, "", "--config", cfg, "stat", "--location", "seg/a.ivf")
	require.NoError(t, err)
	assert.Contains(t, out, "IVFFlatCPU")
	assert.Regexp(t, `count:\s+250`, out)
	assert.Regexp(t, `dimension:\s+4`, out)

	// Record 1000 is (1000, 2000%97, 3000%97, 4000%97).
	query := fmt.Sprintf("%d,%d,%d,%d", 1000, 2000%97, 3000%97, 4000%97)
	out, err = execute(t, "", "--config", cfg, "search", "--location", "seg/a.ivf", "--k", "1", "--query", query)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"0", "0", "1000", "0"}, strings.Fields(lines[1]))

	out, err = execute(t, "", "--config", cfg, "list", "--prefix", "seg/")
	require.NoError(t, err)
	assert.Equal(t, "seg/a\nseg/a.ivf\nseg/b\n", out)
}

func TestCLI_Errors(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)

	_, err := execute(t, "", "--config", cfg, "merge", "--location", "seg/a", "--from", "seg/a")
	assert.Error(t, err)

	_, err = execute(t, `{"id":1,"vector":[1,2]}`+"\n"+`{"id":2,"vector":[1]}`, "--config", cfg,
		"ingest", "--location", "seg/bad")
	assert.ErrorContains(t, err, "record 2")

	_, err = execute(t, "", "--config", cfg, "ingest", "--location", "seg/x", "--build-type", "hnsw")
	assert.Error(t, err)

	_, err = execute(t, "", "--config", cfg, "search", "--location", "seg/none", "--query", "1,2")
	assert.Error(t, err)

	_, err = execute(t, "", "--config", cfg, "stat")
	assert.ErrorContains(t, err, "location")
}

func TestParseVector(t *testing.T) {
	vec, err := parseVector(" 1, 2.5 ,-3 ")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2.5, -3}, vec)

	_, err = parseVector("1,x")
	assert.Error(t, err)
	_, err = parseVector(" , ")
	assert.Error(t, err)
}

func TestMetricsMux(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "probe_total", Help: "probe"})
	reg.MustRegister(counter)
	counter.Inc()

	srv := httptest.NewServer(metricsMux(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "probe_total 1")

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
