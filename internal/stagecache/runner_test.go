package stagecache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type vadParams struct {
	Onset  float64 `json:"onset"`
	Offset float64 `json:"offset"`
	Method string  `json:"method"`
}

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func passthroughExecutor(produced *int) Executor {
	return func(_ context.Context, stage string, _ []string, _ any, outputDir string) ([]string, error) {
		*produced++
		out := filepath.Join(outputDir, stage+".json")
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(out, []byte(`{"ok":true}`), 0o644); err != nil {
			return nil, err
		}
		return []string{out}, nil
	}
}

func TestRunnerSkipLifecycle(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "audio.wav", "pcm bytes")
	outputDir := filepath.Join(dir, "vad")

	cfg := Config{
		Stage:     "vad",
		OutputDir: outputDir,
		Inputs:    []string{input},
		Params:    vadParams{Onset: 0.08, Offset: 0.07, Method: "silero"},
		Version:   "1",
	}

	base := time.Unix(1_700_000_000, 0)
	runs := 0

	runner := NewRunner(cfg, nil)
	runner.now = func() time.Time { return base }

	outcome, err := runner.Run(context.Background(), passthroughExecutor(&runs))
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if outcome.Skipped || runs != 1 {
		t.Fatalf("first run should execute: skipped=%v runs=%d", outcome.Skipped, runs)
	}
	if outcome.Manifest.Timestamp != base.Unix() {
		t.Errorf("timestamp should be execution time: %d", outcome.Manifest.Timestamp)
	}

	later := base.Add(10 * time.Minute)
	runner2 := NewRunner(cfg, nil)
	runner2.now = func() time.Time { return later }

	outcome2, err := runner2.Run(context.Background(), passthroughExecutor(&runs))
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !outcome2.Skipped || runs != 1 {
		t.Fatalf("unchanged stage should skip: skipped=%v runs=%d", outcome2.Skipped, runs)
	}
	if outcome2.Manifest.Timestamp != base.Unix() {
		t.Errorf("skip must preserve the work timestamp: %d", outcome2.Manifest.Timestamp)
	}
	if outcome2.Manifest.LastCheckedTS != later.Unix() {
		t.Errorf("skip must advance last_checked_ts: %d", outcome2.Manifest.LastCheckedTS)
	}
}

func TestRunnerRerunsOnInputChange(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "audio.wav", "pcm bytes")
	cfg := Config{Stage: "asr", OutputDir: filepath.Join(dir, "asr"), Inputs: []string{input}, Version: "1"}

	runs := 0
	if _, err := NewRunner(cfg, nil).Run(context.Background(), passthroughExecutor(&runs)); err != nil {
		t.Fatal(err)
	}

	writeInput(t, dir, "audio.wav", "different pcm bytes")
	outcome, err := NewRunner(cfg, nil).Run(context.Background(), passthroughExecutor(&runs))
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Skipped || runs != 2 {
		t.Fatalf("changed input should rerun: skipped=%v runs=%d", outcome.Skipped, runs)
	}
}

func TestRunnerRerunsOnParamsChange(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "audio.wav", "pcm")
	outputDir := filepath.Join(dir, "vad")

	runs := 0
	first := Config{Stage: "vad", OutputDir: outputDir, Inputs: []string{input}, Params: vadParams{Onset: 0.08, Method: "silero"}, Version: "1"}
	if _, err := NewRunner(first, nil).Run(context.Background(), passthroughExecutor(&runs)); err != nil {
		t.Fatal(err)
	}

	changed := first
	changed.Params = vadParams{Onset: 0.2, Method: "silero"}
	outcome, err := NewRunner(changed, nil).Run(context.Background(), passthroughExecutor(&runs))
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Skipped || runs != 2 {
		t.Fatalf("changed params should rerun: skipped=%v runs=%d", outcome.Skipped, runs)
	}
}

func TestRunnerRerunsOnVersionChange(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "audio.wav", "pcm")
	outputDir := filepath.Join(dir, "align")

	runs := 0
	cfg := Config{Stage: "align", OutputDir: outputDir, Inputs: []string{input}, Version: "1"}
	if _, err := NewRunner(cfg, nil).Run(context.Background(), passthroughExecutor(&runs)); err != nil {
		t.Fatal(err)
	}

	cfg.Version = "2"
	outcome, err := NewRunner(cfg, nil).Run(context.Background(), passthroughExecutor(&runs))
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Skipped || runs != 2 {
		t.Fatalf("version bump should rerun: skipped=%v runs=%d", outcome.Skipped, runs)
	}
}

func TestRunnerForceBypassesCache(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "audio.wav", "pcm")
	cfg := Config{Stage: "vad", OutputDir: filepath.Join(dir, "vad"), Inputs: []string{input}, Version: "1"}

	runs := 0
	if _, err := NewRunner(cfg, nil).Run(context.Background(), passthroughExecutor(&runs)); err != nil {
		t.Fatal(err)
	}

	cfg.Force = true
	outcome, err := NewRunner(cfg, nil).Run(context.Background(), passthroughExecutor(&runs))
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Skipped || runs != 2 {
		t.Fatalf("force should rerun: skipped=%v runs=%d", outcome.Skipped, runs)
	}
}

func TestRunnerCorruptManifestForcesRerun(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "audio.wav", "pcm")
	outputDir := filepath.Join(dir, "vad")
	cfg := Config{Stage: "vad", OutputDir: outputDir, Inputs: []string{input}, Version: "1"}

	runs := 0
	if _, err := NewRunner(cfg, nil).Run(context.Background(), passthroughExecutor(&runs)); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(outputDir, ManifestFileName), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	outcome, err := NewRunner(cfg, nil).Run(context.Background(), passthroughExecutor(&runs))
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Skipped || runs != 2 {
		t.Fatalf("corrupt manifest should rerun: skipped=%v runs=%d", outcome.Skipped, runs)
	}
}

func TestRunnerExecutorFailureLeavesManifestStale(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "audio.wav", "pcm")
	outputDir := filepath.Join(dir, "asr")
	cfg := Config{Stage: "asr", OutputDir: outputDir, Inputs: []string{input}, Version: "1"}

	boom := errors.New("tool crashed")
	_, err := NewRunner(cfg, nil).Run(context.Background(), func(context.Context, string, []string, any, string) ([]string, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("executor error should propagate, got %v", err)
	}

	if _, ok := LoadManifest(outputDir); ok {
		t.Error("failed execution must not leave a fresh manifest")
	}

	runs := 0
	outcome, err := NewRunner(cfg, nil).Run(context.Background(), passthroughExecutor(&runs))
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Skipped {
		t.Error("next invocation after failure must rerun")
	}
}

func TestRunnerNilOutputsScansOutputDir(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "audio.wav", "pcm")
	outputDir := filepath.Join(dir, "diarize")
	cfg := Config{Stage: "diarize", OutputDir: outputDir, Inputs: []string{input}, Version: "1"}

	outcome, err := NewRunner(cfg, nil).Run(context.Background(), func(_ context.Context, _ string, _ []string, _ any, out string) ([]string, error) {
		if err := os.MkdirAll(filepath.Join(out, "nested"), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(filepath.Join(out, "speakers.json"), []byte("{}"), 0o644); err != nil {
			return nil, err
		}
		if err := os.WriteFile(filepath.Join(out, "nested", "extra.json"), []byte("{}"), 0o644); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(outcome.Outputs) != 2 {
		t.Fatalf("auto-scan should find 2 files, got %d: %v", len(outcome.Outputs), outcome.Outputs)
	}
}

func TestManifestJSONSortedKeys(t *testing.T) {
	dir := t.TempDir()
	m := Manifest{StageName: "vad", InputsChecksum: "abc", RunnerVersion: "1", Timestamp: 10, LastCheckedTS: 10, Params: []byte(`{"b":1,"a":2}`)}
	if err := SaveManifest(dir, m); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if idx1, idx2 := indexOf(content, `"inputs_checksum"`), indexOf(content, `"stage_name"`); idx1 < 0 || idx2 < 0 || idx1 > idx2 {
		t.Errorf("manifest keys should be sorted:\n%s", content)
	}
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
