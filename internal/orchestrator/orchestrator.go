package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"subpipe/internal/artifactstore"
	"subpipe/internal/fileutil"
	"subpipe/internal/identity"
	"subpipe/internal/journal"
	"subpipe/internal/logging"
	"subpipe/internal/services"
)

// Orchestrator ties a job run to the artifact store: restore a baseline
// before the expensive stages run, persist one after they succeed. Every
// operation degrades to "proceed without cache" on failure; the orchestrator
// never fails a pipeline run.
type Orchestrator struct {
	identifier    *identity.Identifier
	store         *artifactstore.Store
	journal       *journal.Journal
	logger        *slog.Logger
	sampleSeconds int

	// ids memoizes media fingerprints within one job so store-after-run
	// reuses the id computed at restore time.
	ids map[string]string
}

// New builds an Orchestrator. A nil store disables caching entirely; a nil
// journal disables event recording.
func New(identifier *identity.Identifier, store *artifactstore.Store, jrnl *journal.Journal, logger *slog.Logger, sampleSeconds int) *Orchestrator {
	return &Orchestrator{
		identifier:    identifier,
		store:         store,
		journal:       jrnl,
		logger:        logging.NewComponentLogger(logger, "orchestrator"),
		sampleSeconds: sampleSeconds,
		ids:           make(map[string]string),
	}
}

// Enabled reports whether a store is attached.
func (o *Orchestrator) Enabled() bool {
	return o.store != nil
}

// MediaID computes (or reuses) the content fingerprint for mediaFile.
func (o *Orchestrator) MediaID(ctx context.Context, mediaFile string) (string, error) {
	if id, ok := o.ids[mediaFile]; ok {
		return id, nil
	}
	id, err := o.identifier.ComputeMediaID(ctx, mediaFile, o.sampleSeconds)
	if err != nil {
		return "", err
	}
	o.ids[mediaFile] = id
	return id, nil
}

// TryRestore rehydrates layout's stage-output directories from the cached
// baseline for mediaFile. It returns true only when every artifact landed;
// any failure, including a half-written job directory, reads as false so
// the caller regenerates everything and overwrites the partial restore.
func (o *Orchestrator) TryRestore(ctx context.Context, layout JobLayout, mediaFile string) bool {
	if !o.Enabled() {
		return false
	}

	mediaID, err := o.MediaID(ctx, mediaFile)
	if err != nil {
		o.degrade(ctx, "", "restore", err)
		return false
	}
	ctx = services.WithMediaID(ctx, mediaID)

	if !o.store.HasBaseline(mediaID) {
		o.logger.InfoContext(ctx, "no cached baseline",
			logging.String(logging.FieldEventType, logging.EventCacheMiss),
			logging.String(logging.FieldMediaID, mediaID))
		o.record(ctx, mediaID, journal.KindRestoreMiss, "")
		return false
	}

	baseline, ok := o.store.GetBaseline(ctx, mediaID)
	if !ok {
		o.logger.WarnContext(ctx, "cached baseline unreadable, regenerating",
			logging.String(logging.FieldEventType, logging.EventCacheMiss),
			logging.String(logging.FieldMediaID, mediaID))
		o.record(ctx, mediaID, journal.KindRestoreMiss, "entry unreadable")
		return false
	}

	if err := o.rehydrate(layout, baseline); err != nil {
		o.logger.WarnContext(ctx, "baseline restore failed, regenerating",
			logging.String(logging.FieldEventType, logging.EventCacheRestoreFailed),
			logging.String(logging.FieldMediaID, mediaID),
			logging.Error(err))
		o.record(ctx, mediaID, journal.KindRestoreMiss, "rehydration failed")
		return false
	}

	o.logger.InfoContext(ctx, "baseline restored from cache",
		logging.String(logging.FieldEventType, logging.EventCacheHit),
		logging.String(logging.FieldMediaID, mediaID),
		logging.Int("segments", len(baseline.Segments)))
	o.record(ctx, mediaID, journal.KindRestoreHit, fmt.Sprintf("segments=%d", len(baseline.Segments)))
	return true
}

func (o *Orchestrator) rehydrate(layout JobLayout, baseline *artifactstore.BaselineArtifacts) error {
	if err := fileutil.CopyFileMode(baseline.AudioPath, layout.AudioPath(), 0o644); err != nil {
		return fmt.Errorf("restore audio: %w", err)
	}
	if err := writeArtifact(layout.VADPath(), baseline.VADSegments); err != nil {
		return fmt.Errorf("restore vad segments: %w", err)
	}
	if err := writeArtifact(layout.ASRPath(), baseline.Segments); err != nil {
		return fmt.Errorf("restore segments: %w", err)
	}
	if err := writeArtifact(layout.AlignedPath(), baseline.AlignedSegments); err != nil {
		return fmt.Errorf("restore aligned segments: %w", err)
	}
	if baseline.Diarization != nil {
		if err := writeArtifact(layout.DiarizationPath(), baseline.Diarization); err != nil {
			return fmt.Errorf("restore diarization: %w", err)
		}
	}
	return nil
}

// StoreBaseline gathers the baseline stage outputs from layout and persists
// them under mediaFile's fingerprint. A missing required artifact (audio,
// VAD spans, transcript segments) skips the store without error; aligned
// segments fall back to the raw transcript and diarization is best-effort.
func (o *Orchestrator) StoreBaseline(ctx context.Context, layout JobLayout, mediaFile string) bool {
	if !o.Enabled() {
		return false
	}

	mediaID, err := o.MediaID(ctx, mediaFile)
	if err != nil {
		o.degrade(ctx, "", "store", err)
		return false
	}
	ctx = services.WithMediaID(ctx, mediaID)

	artifacts, reason := o.gather(layout, mediaID)
	if artifacts == nil {
		o.logger.InfoContext(ctx, "nothing to store",
			logging.String(logging.FieldMediaID, mediaID),
			logging.String("reason", reason))
		o.record(ctx, mediaID, journal.KindStoreSkip, reason)
		return false
	}

	if !o.store.StoreBaseline(ctx, *artifacts) {
		o.record(ctx, mediaID, journal.KindStoreSkip, "store write failed")
		return false
	}
	o.record(ctx, mediaID, journal.KindStored, fmt.Sprintf("segments=%d", len(artifacts.Segments)))
	return true
}

// gather collects stage outputs from the job directory. A nil result means
// nothing should be stored, with reason explaining why.
func (o *Orchestrator) gather(layout JobLayout, mediaID string) (*artifactstore.BaselineArtifacts, string) {
	audioPath, ok := findArtifact(layout.stageDir(demuxDirName), audioCandidates)
	if !ok {
		return nil, "audio output missing"
	}

	var vadSegments []artifactstore.VADSpan
	if !loadArtifact(layout.stageDir(vadDirName), vadCandidates, &vadSegments) {
		return nil, "vad output missing or unreadable"
	}
	var segments []artifactstore.Segment
	if !loadArtifact(layout.stageDir(asrDirName), asrCandidates, &segments) {
		return nil, "transcript output missing or unreadable"
	}

	aligned := segments
	var alignedSegments []artifactstore.Segment
	if loadArtifact(layout.stageDir(alignDirName), alignedCandidates, &alignedSegments) {
		aligned = alignedSegments
	}

	var diarization *artifactstore.Diarization
	var parsed artifactstore.Diarization
	if loadArtifact(layout.stageDir(diarizeDirName), diarizationCandidates, &parsed) {
		diarization = &parsed
	}

	return &artifactstore.BaselineArtifacts{
		MediaID:         mediaID,
		AudioPath:       audioPath,
		Segments:        segments,
		AlignedSegments: aligned,
		VADSegments:     vadSegments,
		Diarization:     diarization,
		Metadata:        artifactstore.Metadata{DurationSeconds: spanEnd(segments, vadSegments)},
	}, ""
}

// Invalidate clears the cached baseline for mediaFile's content.
func (o *Orchestrator) Invalidate(ctx context.Context, mediaFile string) bool {
	if !o.Enabled() {
		return false
	}
	mediaID, err := o.MediaID(ctx, mediaFile)
	if err != nil {
		o.degrade(ctx, "", "invalidate", err)
		return false
	}
	if !o.store.ClearBaseline(ctx, mediaID) {
		return false
	}
	o.record(ctx, mediaID, journal.KindInvalidated, "")
	return true
}

func (o *Orchestrator) degrade(ctx context.Context, mediaID, operation string, err error) {
	o.logger.WarnContext(ctx, "cache unavailable, proceeding without it",
		logging.String("operation", operation),
		logging.String(logging.FieldErrorHint, "check ffmpeg/ffprobe installation and media file permissions"),
		logging.Error(err))
	o.record(ctx, mediaID, journal.KindDegraded, operation+": "+err.Error())
}

func (o *Orchestrator) record(ctx context.Context, mediaID, kind, detail string) {
	if err := o.journal.Record(ctx, mediaID, kind, detail); err != nil {
		o.logger.DebugContext(ctx, "journal write failed", logging.Error(err))
	}
}

func findArtifact(dir string, candidates []string) (string, bool) {
	for _, name := range candidates {
		path := filepath.Join(dir, name)
		if fileutil.FileExists(path) {
			return path, true
		}
	}
	return "", false
}

func loadArtifact(dir string, candidates []string, target any) bool {
	path, ok := findArtifact(dir, candidates)
	if !ok {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, target) == nil
}

func writeArtifact(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644)
}

func spanEnd(segments []artifactstore.Segment, vad []artifactstore.VADSpan) float64 {
	var end float64
	for _, s := range segments {
		if s.End > end {
			end = s.End
		}
	}
	for _, v := range vad {
		if v.End > end {
			end = v.End
		}
	}
	return end
}
