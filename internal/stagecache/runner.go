package stagecache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"subpipe/internal/fileutil"
	"subpipe/internal/logging"
	"subpipe/internal/services"
)

// Executor performs the actual work of a stage. It returns the list of
// produced files, or nil to have the runner scan the output directory. It
// must raise on unrecoverable failure and must not partially write the
// output directory and then succeed silently.
type Executor func(ctx context.Context, stage string, inputs []string, params any, outputDir string) ([]string, error)

// Config describes one stage invocation for cache-decision purposes.
type Config struct {
	// Stage is the pipeline stage name (e.g. "vad", "asr").
	Stage string
	// OutputDir holds the stage's outputs and its manifest.
	OutputDir string
	// Inputs are the files and directories whose content gates re-execution.
	Inputs []string
	// Params is the stage's serializable parameter struct. Equality is
	// structural: canonical JSON comparison.
	Params any
	// Version is the cache-format/tool version; any change forces a rerun.
	Version string
	// Force bypasses the cache check entirely.
	Force bool
}

// Outcome reports what Run did.
type Outcome struct {
	Skipped  bool
	Outputs  []string
	Manifest Manifest
}

// Runner decides whether a stage must re-execute and maintains its manifest.
type Runner struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewRunner builds a Runner for one stage invocation.
func NewRunner(cfg Config, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "stagecache"),
		now:    time.Now,
	}
}

// ShouldRun reports whether the stage needs to execute. Force, a missing or
// corrupt manifest, a changed inputs checksum, changed params, or a changed
// version all force a rerun.
func (r *Runner) ShouldRun(ctx context.Context) (bool, error) {
	if r.cfg.Force {
		return true, nil
	}

	manifest, ok := LoadManifest(r.cfg.OutputDir)
	if !ok {
		return true, nil
	}

	checksum := ComputeInputsChecksum(r.cfg.Inputs)
	if checksum != manifest.InputsChecksum {
		r.logDecision(ctx, "inputs changed")
		return true, nil
	}

	params, err := canonicalJSON(r.cfg.Params)
	if err != nil {
		return false, services.Wrap(services.ErrValidation, "stagecache", "params", "not serializable", err)
	}
	previous, err := canonicalJSON(manifest.Params)
	if err != nil {
		return true, nil
	}
	if !bytes.Equal(params, previous) {
		r.logDecision(ctx, "params changed")
		return true, nil
	}

	if r.cfg.Version != manifest.RunnerVersion {
		r.logDecision(ctx, "version changed")
		return true, nil
	}
	return false, nil
}

// Run executes the stage through executor when the cache decides it must,
// otherwise refreshes the manifest's last-checked timestamp and skips.
func (r *Runner) Run(ctx context.Context, executor Executor) (Outcome, error) {
	run, err := r.ShouldRun(ctx)
	if err != nil {
		return Outcome{}, err
	}

	logger := logging.WithContext(ctx, r.logger)

	if !run {
		manifest, _ := LoadManifest(r.cfg.OutputDir)
		manifest.LastCheckedTS = r.now().Unix()
		if err := SaveManifest(r.cfg.OutputDir, manifest); err != nil {
			return Outcome{}, fmt.Errorf("refresh manifest: %w", err)
		}
		logger.InfoContext(ctx, "stage skipped",
			logging.String(logging.FieldEventType, logging.EventStageSkipped),
			logging.String(logging.FieldStage, r.cfg.Stage))
		return Outcome{Skipped: true, Outputs: manifest.Outputs, Manifest: manifest}, nil
	}

	logger.InfoContext(ctx, "stage running",
		logging.String(logging.FieldEventType, logging.EventStageRunning),
		logging.String(logging.FieldStage, r.cfg.Stage),
		logging.Int("input_count", len(r.cfg.Inputs)))

	outputs, err := executor(ctx, r.cfg.Stage, r.cfg.Inputs, r.cfg.Params, r.cfg.OutputDir)
	if err != nil {
		// Leave the previous manifest untouched: its now-stale checksum will
		// force the next invocation to retry.
		logger.ErrorContext(ctx, "stage failed",
			logging.String(logging.FieldEventType, logging.EventStageFailed),
			logging.String(logging.FieldStage, r.cfg.Stage),
			logging.Error(err))
		return Outcome{}, err
	}

	if outputs == nil {
		scanned, err := fileutil.ListFiles(r.cfg.OutputDir)
		if err != nil {
			return Outcome{}, fmt.Errorf("scan outputs: %w", err)
		}
		outputs = scanned[:0]
		for _, path := range scanned {
			if filepath.Base(path) == ManifestFileName {
				continue
			}
			outputs = append(outputs, path)
		}
	}

	params, err := json.Marshal(r.cfg.Params)
	if err != nil {
		return Outcome{}, services.Wrap(services.ErrValidation, "stagecache", "params", "not serializable", err)
	}

	now := r.now().Unix()
	manifest := Manifest{
		StageName:      r.cfg.Stage,
		Inputs:         append([]string(nil), r.cfg.Inputs...),
		InputsChecksum: ComputeInputsChecksum(r.cfg.Inputs),
		Params:         params,
		RunnerVersion:  r.cfg.Version,
		Outputs:        outputs,
		Timestamp:      now,
		LastCheckedTS:  now,
	}
	if err := SaveManifest(r.cfg.OutputDir, manifest); err != nil {
		return Outcome{}, fmt.Errorf("write manifest: %w", err)
	}

	logger.InfoContext(ctx, "stage completed",
		logging.String(logging.FieldEventType, logging.EventStageCompleted),
		logging.String(logging.FieldStage, r.cfg.Stage),
		logging.Int("output_count", len(outputs)))

	return Outcome{Outputs: outputs, Manifest: manifest}, nil
}

func (r *Runner) logDecision(ctx context.Context, reason string) {
	r.logger.DebugContext(ctx, "stage cache miss",
		logging.String(logging.FieldEventType, logging.EventCacheMiss),
		logging.String(logging.FieldStage, r.cfg.Stage),
		logging.String("reason", reason))
}
