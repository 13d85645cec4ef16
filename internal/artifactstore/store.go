package artifactstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"subpipe/internal/fileutil"
	"subpipe/internal/logging"
)

const (
	mediaDirName        = "media"
	baselineDirName     = "baseline"
	glossaryDirName     = "glossary"
	lockFileName        = ".lock"
	segmentsFileName    = "segments.json"
	alignedFileName     = "aligned_segments.json"
	vadFileName         = "vad_segments.json"
	diarizationFileName = "diarization.json"
	metadataFileName    = "metadata.json"
	appliedFileName     = "applied_segments.json"
	qualityFileName     = "quality_metrics.json"
	defaultAudioName    = "audio.wav"
)

// Store persists baseline and glossary artifacts under a content-addressed
// layout rooted at <root>/media/<media_id>/. Reads are tolerant: a missing,
// partial, or corrupt entry is a miss, never an error. Writes report success
// as a boolean so a failing cache degrades the pipeline to uncached
// execution instead of aborting it.
type Store struct {
	root   string
	logger *slog.Logger
}

// New opens a store rooted at root. The directory is created lazily on the
// first write.
func New(root string, logger *slog.Logger) *Store {
	return &Store{
		root:   root,
		logger: logging.NewComponentLogger(logger, "artifactstore"),
	}
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) mediaDir(mediaID string) string {
	return filepath.Join(s.root, mediaDirName, mediaID)
}

func (s *Store) baselineDir(mediaID string) string {
	return filepath.Join(s.mediaDir(mediaID), baselineDirName)
}

func (s *Store) glossaryDir(mediaID, glossaryHash string) string {
	return filepath.Join(s.mediaDir(mediaID), glossaryDirName, glossaryHash)
}

// lockMedia takes an advisory lock scoped to one media entry so concurrent
// store or clear operations on the same fingerprint serialize. Distinct
// media ids never contend.
func (s *Store) lockMedia(mediaID string) (*flock.Flock, error) {
	dir := s.mediaDir(mediaID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(dir, lockFileName))
	if err := lock.Lock(); err != nil {
		return nil, err
	}
	return lock, nil
}

// HasBaseline reports whether a complete, current-format baseline exists for
// mediaID. The audio copy, both segment files, the VAD spans, and a metadata
// file with a matching format version must all be present.
func (s *Store) HasBaseline(mediaID string) bool {
	dir := s.baselineDir(mediaID)
	meta, ok := readMetadata(dir)
	if !ok || meta.FormatVersion != FormatVersion {
		return false
	}
	for _, name := range []string{audioName(meta), segmentsFileName, alignedFileName, vadFileName} {
		if !fileutil.FileExists(filepath.Join(dir, name)) {
			return false
		}
	}
	return true
}

// GetBaseline loads the baseline for mediaID. The returned AudioPath points
// at the store's own copy; callers copy it out rather than mutate it. A
// missing or unreadable entry returns (nil, false).
func (s *Store) GetBaseline(ctx context.Context, mediaID string) (*BaselineArtifacts, bool) {
	if !s.HasBaseline(mediaID) {
		return nil, false
	}
	dir := s.baselineDir(mediaID)
	meta, _ := readMetadata(dir)

	artifacts := &BaselineArtifacts{
		MediaID:   mediaID,
		AudioPath: filepath.Join(dir, audioName(meta)),
		Metadata:  meta,
	}
	if !readJSON(filepath.Join(dir, segmentsFileName), &artifacts.Segments) {
		s.logReadFailure(ctx, mediaID, segmentsFileName)
		return nil, false
	}
	if !readJSON(filepath.Join(dir, alignedFileName), &artifacts.AlignedSegments) {
		s.logReadFailure(ctx, mediaID, alignedFileName)
		return nil, false
	}
	if !readJSON(filepath.Join(dir, vadFileName), &artifacts.VADSegments) {
		s.logReadFailure(ctx, mediaID, vadFileName)
		return nil, false
	}
	if fileutil.FileExists(filepath.Join(dir, diarizationFileName)) {
		var diarization Diarization
		if readJSON(filepath.Join(dir, diarizationFileName), &diarization) {
			artifacts.Diarization = &diarization
		}
		// A corrupt diarization file degrades the entry, it does not void it.
	}
	return artifacts, true
}

// StoreBaseline writes a baseline entry for artifacts.MediaID, replacing any
// previous one. Every file is written through a temp-then-rename cycle and
// metadata lands last, so a crash mid-store leaves an entry that reads as
// absent.
func (s *Store) StoreBaseline(ctx context.Context, artifacts BaselineArtifacts) bool {
	if artifacts.MediaID == "" || artifacts.AudioPath == "" {
		s.logger.WarnContext(ctx, "baseline store rejected, incomplete artifacts",
			logging.String(logging.FieldMediaID, artifacts.MediaID))
		return false
	}

	lock, err := s.lockMedia(artifacts.MediaID)
	if err != nil {
		s.logWriteFailure(ctx, artifacts.MediaID, "lock", err)
		return false
	}
	defer lock.Unlock()

	dir := s.baselineDir(artifacts.MediaID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logWriteFailure(ctx, artifacts.MediaID, "mkdir", err)
		return false
	}

	meta := artifacts.Metadata
	meta.FormatVersion = FormatVersion
	meta.MediaID = artifacts.MediaID
	meta.AudioFile = defaultAudioName
	if ext := filepath.Ext(artifacts.AudioPath); ext != "" {
		meta.AudioFile = "audio" + ext
	}
	meta.SegmentCount = len(artifacts.Segments)
	meta.VADCount = len(artifacts.VADSegments)
	meta.HasDiarization = artifacts.Diarization != nil
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	if err := fileutil.CopyFileAtomic(artifacts.AudioPath, filepath.Join(dir, meta.AudioFile)); err != nil {
		s.logWriteFailure(ctx, artifacts.MediaID, meta.AudioFile, err)
		return false
	}
	if !s.writeJSON(ctx, artifacts.MediaID, filepath.Join(dir, segmentsFileName), artifacts.Segments) {
		return false
	}
	if !s.writeJSON(ctx, artifacts.MediaID, filepath.Join(dir, alignedFileName), artifacts.AlignedSegments) {
		return false
	}
	if !s.writeJSON(ctx, artifacts.MediaID, filepath.Join(dir, vadFileName), artifacts.VADSegments) {
		return false
	}
	if artifacts.Diarization != nil {
		if !s.writeJSON(ctx, artifacts.MediaID, filepath.Join(dir, diarizationFileName), artifacts.Diarization) {
			return false
		}
	} else if err := os.Remove(filepath.Join(dir, diarizationFileName)); err != nil && !os.IsNotExist(err) {
		s.logWriteFailure(ctx, artifacts.MediaID, diarizationFileName, err)
		return false
	}
	if !s.writeJSON(ctx, artifacts.MediaID, filepath.Join(dir, metadataFileName), meta) {
		return false
	}

	s.logger.InfoContext(ctx, "baseline stored",
		logging.String(logging.FieldEventType, logging.EventCacheStored),
		logging.String(logging.FieldMediaID, artifacts.MediaID),
		logging.Int("segments", meta.SegmentCount),
		logging.Int("vad_spans", meta.VADCount),
		logging.Bool("diarization", meta.HasDiarization))
	return true
}

// ClearBaseline removes the baseline entry for mediaID. Clearing an absent
// entry succeeds; glossary entries under the same media id are untouched.
func (s *Store) ClearBaseline(ctx context.Context, mediaID string) bool {
	if mediaID == "" {
		return false
	}
	lock, err := s.lockMedia(mediaID)
	if err != nil {
		s.logWriteFailure(ctx, mediaID, "lock", err)
		return false
	}
	defer lock.Unlock()

	if err := os.RemoveAll(s.baselineDir(mediaID)); err != nil {
		s.logWriteFailure(ctx, mediaID, baselineDirName, err)
		return false
	}
	s.logger.InfoContext(ctx, "baseline cleared",
		logging.String(logging.FieldEventType, logging.EventCacheInvalidated),
		logging.String(logging.FieldMediaID, mediaID))
	return true
}

// HasGlossary reports whether glossary results exist for the media and
// glossary content pair.
func (s *Store) HasGlossary(mediaID, glossaryHash string) bool {
	dir := s.glossaryDir(mediaID, glossaryHash)
	return fileutil.FileExists(filepath.Join(dir, appliedFileName)) &&
		fileutil.FileExists(filepath.Join(dir, qualityFileName))
}

// GetGlossary loads cached glossary results. A missing or unreadable entry
// returns (nil, false).
func (s *Store) GetGlossary(ctx context.Context, mediaID, glossaryHash string) (*GlossaryResults, bool) {
	dir := s.glossaryDir(mediaID, glossaryHash)
	results := &GlossaryResults{MediaID: mediaID, GlossaryHash: glossaryHash}
	if !readJSON(filepath.Join(dir, appliedFileName), &results.AppliedSegments) {
		return nil, false
	}
	if !readJSON(filepath.Join(dir, qualityFileName), &glossaryQuality{
		QualityMetrics: &results.QualityMetrics,
		CreatedAt:      &results.CreatedAt,
	}) {
		return nil, false
	}
	return results, true
}

// StoreGlossary writes glossary results keyed by (media id, glossary hash).
// Results computed against a different glossary revision land in their own
// entry and never collide.
func (s *Store) StoreGlossary(ctx context.Context, results GlossaryResults) bool {
	if results.MediaID == "" || results.GlossaryHash == "" {
		s.logger.WarnContext(ctx, "glossary store rejected, incomplete key",
			logging.String(logging.FieldMediaID, results.MediaID))
		return false
	}

	lock, err := s.lockMedia(results.MediaID)
	if err != nil {
		s.logWriteFailure(ctx, results.MediaID, "lock", err)
		return false
	}
	defer lock.Unlock()

	dir := s.glossaryDir(results.MediaID, results.GlossaryHash)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logWriteFailure(ctx, results.MediaID, "mkdir", err)
		return false
	}

	createdAt := results.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if !s.writeJSON(ctx, results.MediaID, filepath.Join(dir, appliedFileName), results.AppliedSegments) {
		return false
	}
	if !s.writeJSON(ctx, results.MediaID, filepath.Join(dir, qualityFileName), glossaryQuality{
		QualityMetrics: &results.QualityMetrics,
		CreatedAt:      &createdAt,
	}) {
		return false
	}

	s.logger.InfoContext(ctx, "glossary results stored",
		logging.String(logging.FieldEventType, logging.EventCacheStored),
		logging.String(logging.FieldMediaID, results.MediaID),
		logging.String("glossary_hash", results.GlossaryHash))
	return true
}

// ClearGlossary removes one glossary entry, or all of a media's glossary
// entries when glossaryHash is empty.
func (s *Store) ClearGlossary(ctx context.Context, mediaID, glossaryHash string) bool {
	if mediaID == "" {
		return false
	}
	lock, err := s.lockMedia(mediaID)
	if err != nil {
		s.logWriteFailure(ctx, mediaID, "lock", err)
		return false
	}
	defer lock.Unlock()

	target := filepath.Join(s.mediaDir(mediaID), glossaryDirName)
	if glossaryHash != "" {
		target = s.glossaryDir(mediaID, glossaryHash)
	}
	if err := os.RemoveAll(target); err != nil {
		s.logWriteFailure(ctx, mediaID, glossaryDirName, err)
		return false
	}
	s.logger.InfoContext(ctx, "glossary entries cleared",
		logging.String(logging.FieldEventType, logging.EventCacheInvalidated),
		logging.String(logging.FieldMediaID, mediaID),
		logging.String("glossary_hash", glossaryHash))
	return true
}

// glossaryQuality is the quality_metrics.json document. Pointer fields let
// the same struct serve both read and write paths.
type glossaryQuality struct {
	QualityMetrics *map[string]float64 `json:"quality_metrics"`
	CreatedAt      *time.Time          `json:"created_at"`
}

func audioName(meta Metadata) string {
	if meta.AudioFile != "" {
		return meta.AudioFile
	}
	return defaultAudioName
}

func readMetadata(dir string) (Metadata, bool) {
	var meta Metadata
	if !readJSON(filepath.Join(dir, metadataFileName), &meta) {
		return Metadata{}, false
	}
	return meta, true
}

func readJSON(path string, target any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, target) == nil
}

func (s *Store) writeJSON(ctx context.Context, mediaID, path string, value any) bool {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		s.logWriteFailure(ctx, mediaID, filepath.Base(path), err)
		return false
	}
	if err := fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		s.logWriteFailure(ctx, mediaID, filepath.Base(path), err)
		return false
	}
	return true
}

func (s *Store) logReadFailure(ctx context.Context, mediaID, file string) {
	s.logger.WarnContext(ctx, "cache entry unreadable, treating as miss",
		logging.String(logging.FieldEventType, logging.EventCacheMiss),
		logging.String(logging.FieldMediaID, mediaID),
		logging.String("file", file))
}

func (s *Store) logWriteFailure(ctx context.Context, mediaID, file string, err error) {
	s.logger.WarnContext(ctx, "cache write failed",
		logging.String(logging.FieldMediaID, mediaID),
		logging.String("file", file),
		logging.Error(err))
}
