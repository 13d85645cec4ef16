package artifactstore

import "time"

// FormatVersion is the on-disk schema version stamped into every baseline's
// metadata. Entries written under a different version read as cache misses;
// they stay on disk until a fresh store overwrites them or the entry is
// cleared explicitly.
const FormatVersion = 1

// Word carries word-level timing inside an aligned segment.
type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
	Score float64 `json:"score,omitempty"`
}

// Segment is one transcript span. Words is populated on aligned segments,
// Speaker after diarization assignment.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Words   []Word  `json:"words,omitempty"`
	Speaker string  `json:"speaker,omitempty"`
}

// VADSpan is one voice-activity window.
type VADSpan struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// SpeakerTurn maps a time range to a speaker label.
type SpeakerTurn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// Diarization is the structured speaker map produced by the diarization
// stage. Optional: its absence never invalidates the rest of a baseline.
type Diarization struct {
	Turns    []SpeakerTurn `json:"turns"`
	Speakers []string      `json:"speakers,omitempty"`
}

// Metadata describes a stored baseline.
type Metadata struct {
	FormatVersion   int            `json:"format_version"`
	MediaID         string         `json:"media_id"`
	AudioFile       string         `json:"audio_file"`
	DurationSeconds float64        `json:"duration_seconds"`
	SegmentCount    int            `json:"segment_count"`
	VADCount        int            `json:"vad_count"`
	HasDiarization  bool           `json:"has_diarization"`
	CreatedAt       time.Time      `json:"created_at"`
	Extra           map[string]any `json:"extra,omitempty"`
}

// BaselineArtifacts is the reusable output of the baseline pipeline stages
// for one media fingerprint. All segment collections derive from the same
// audio file.
type BaselineArtifacts struct {
	MediaID         string
	AudioPath       string
	Segments        []Segment
	AlignedSegments []Segment
	VADSegments     []VADSpan
	Diarization     *Diarization
	Metadata        Metadata
}

// GlossaryResults caches glossary application for one (media, glossary
// content) pair. A changed glossary addresses a different entry; stale
// entries become unreachable rather than invalidated.
type GlossaryResults struct {
	MediaID         string             `json:"media_id"`
	GlossaryHash    string             `json:"glossary_hash"`
	AppliedSegments []Segment          `json:"applied_segments"`
	QualityMetrics  map[string]float64 `json:"quality_metrics"`
	CreatedAt       time.Time          `json:"created_at"`
}
