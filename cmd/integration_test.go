package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const sampleCSV = `title,sentiment,date
markets rally strong earnings,pos,2024-01-01
storm damages coastal towns,neg,2024-01-01
city opens new park,pos,2024-01-02
council delays budget vote,neg,2024-01-02
markets slip after rally,neg,2024-01-02
new school year begins,pos,2024-01-03
earnings beat forecasts,pos,2024-01-03
traffic delays downtown,neg,2024-01-04
park festival draws crowds,pos,2024-01-04
budget talks resume,pos,2024-01-05
`

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd executes the root command with args and returns stdout and stderr.
func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ODAP_API_KEY", "")
	t.Setenv("ODAP_BASE_URL", "")
	t.Setenv("ODAP_PROVIDER", "")
	path := filepath.Join(home, "news.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestCLI_AnalyzeWritesCharts(t *testing.T) {
	path := isolate(t)
	outDir := filepath.Join(filepath.Dir(path), "charts")

	stdout, _, err := runCmd(t, "analyze", path, "--out", outDir, "--rows", "3")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	for _, want := range []string{"Dataset: news.csv (10 rows, 3 columns)", "### Sentiment Distribution", "### Word Cloud", "### Sentiment Trend Over Time", "### Dataset Summary"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in output:\n%s", want, stdout)
		}
	}
	for _, kind := range []string{"sentiment", "wordcloud", "trend"} {
		p := filepath.Join(outDir, "news_"+kind+".png")
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected chart %s: %v", p, err)
		}
	}
}

func TestCLI_AnalyzeJSONWithFilter(t *testing.T) {
	path := isolate(t)
	stdout, _, err := runCmd(t, "analyze", path, "--json", "--sentiment", "neg")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var page struct {
		Rows   int `json:"rows"`
		Panels []struct {
			Kind     string `json:"kind"`
			Status   string `json:"status"`
			Selected string `json:"selected"`
		} `json:"panels"`
	}
	if err := json.Unmarshal([]byte(stdout), &page); err != nil {
		t.Fatalf("decode json: %v\n%s", err, stdout)
	}
	if page.Rows != 10 || len(page.Panels) != 5 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.Panels[2].Kind != "wordcloud" || page.Panels[2].Selected != "neg" {
		t.Fatalf("expected filtered word cloud, got %+v", page.Panels[2])
	}
}

func TestCLI_AnalyzeMalformedFile(t *testing.T) {
	bad := filepath.Join(filepath.Dir(isolate(t)), "bad.csv")
	if err := os.WriteFile(bad, []byte("a,b\n1,\"oops\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := runCmd(t, "analyze", bad)
	if err == nil || !strings.Contains(err.Error(), "invalid or inconsistent rows") {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

func TestCLI_AskPrintPrompt(t *testing.T) {
	path := isolate(t)
	stdout, _, err := runCmd(t, "ask", path, "What", "stands", "out?", "--print-prompt")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !strings.HasPrefix(stdout, "Dataset preview:\n") || !strings.Contains(stdout, "Question: What stands out?") {
		t.Fatalf("unexpected prompt:\n%s", stdout)
	}
}

func TestCLI_AskAgainstFakeAPI(t *testing.T) {
	path := isolate(t)
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"Positive stories lead."}}]}`))
	}))
	defer srv.Close()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ODAP_BASE_URL", srv.URL)

	stdout, stderr, err := runCmd(t, "ask", path, "Summarize")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if strings.TrimSpace(stdout) != "Positive stories lead." {
		t.Fatalf("unexpected answer %q (stderr %q)", stdout, stderr)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one request, got %d", calls)
	}
}

func TestCLI_AskFallsBackWithoutKey(t *testing.T) {
	path := isolate(t)
	stdout, stderr, err := runCmd(t, "ask", path, "Summarize")
	if err != nil {
		t.Fatalf("ask should not fail: %v", err)
	}
	if strings.TrimSpace(stdout) != "No insights available." {
		t.Fatalf("expected fallback answer, got %q", stdout)
	}
	if !strings.Contains(stderr, "Failed to generate insights:") {
		t.Fatalf("expected failure message on stderr, got %q", stderr)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := filepath.Dir(isolate(t))
	cfgPath := filepath.Join(home, "odap.yaml")

	if _, _, err := runCmd(t, "--config", cfgPath, "config", "set", "preview_rows", "8"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	if _, _, err := runCmd(t, "--config", cfgPath, "config", "set", "api_key", "sk-abcdefghijkl"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	stdout, _, err := runCmd(t, "--config", cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(stdout, "preview_rows: 8") {
		t.Fatalf("expected saved preview_rows, got:\n%s", stdout)
	}
	if !strings.Contains(stdout, "api_key: sk-****jkl") || strings.Contains(stdout, "abcdefghijkl") {
		t.Fatalf("expected masked api key, got:\n%s", stdout)
	}
	if _, _, err := runCmd(t, "--config", cfgPath, "config", "set", "provider", "nope"); err == nil {
		t.Fatalf("expected invalid provider error")
	}
	if _, _, err := runCmd(t, "--config", cfgPath, "config", "set", "max_words", "500"); err == nil || !strings.Contains(err.Error(), "at most 100") {
		t.Fatalf("expected max_words limit error, got %v", err)
	}
}
