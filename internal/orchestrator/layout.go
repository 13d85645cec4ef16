package orchestrator

import "path/filepath"

// Stage directory names inside a job working directory. Each baseline stage
// writes into its own directory alongside its cache manifest.
const (
	demuxDirName   = "demux"
	vadDirName     = "vad"
	asrDirName     = "asr"
	alignDirName   = "align"
	diarizeDirName = "diarize"
)

// Conventional artifact filenames, in lookup order. Stage implementations
// have drifted on naming over time; the gather step tries each candidate
// and restores always write the first.
var (
	audioCandidates       = []string{"audio.wav", "extracted_audio.wav", "demux.wav"}
	vadCandidates         = []string{"vad_segments.json", "speech_segments.json"}
	asrCandidates         = []string{"segments.json", "transcript_segments.json"}
	alignedCandidates     = []string{"aligned_segments.json", "word_segments.json"}
	diarizationCandidates = []string{"diarization.json", "speakers.json"}
)

// JobLayout resolves stage-output locations inside one job directory.
type JobLayout struct {
	Dir string
}

func (l JobLayout) stageDir(stage string) string {
	return filepath.Join(l.Dir, stage)
}

// AudioPath is the canonical demux-output location restores write to.
func (l JobLayout) AudioPath() string {
	return filepath.Join(l.stageDir(demuxDirName), audioCandidates[0])
}

// VADPath is the canonical VAD stage output location.
func (l JobLayout) VADPath() string {
	return filepath.Join(l.stageDir(vadDirName), vadCandidates[0])
}

// ASRPath is the canonical transcript segments location.
func (l JobLayout) ASRPath() string {
	return filepath.Join(l.stageDir(asrDirName), asrCandidates[0])
}

// AlignedPath is the canonical word-aligned segments location.
func (l JobLayout) AlignedPath() string {
	return filepath.Join(l.stageDir(alignDirName), alignedCandidates[0])
}

// DiarizationPath is the canonical speaker-map location.
func (l JobLayout) DiarizationPath() string {
	return filepath.Join(l.stageDir(diarizeDirName), diarizationCandidates[0])
}
