package artifactstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func testArtifacts(t *testing.T, mediaID string) BaselineArtifacts {
	t.Helper()
	audio := filepath.Join(t.TempDir(), "job-audio.wav")
	if err := os.WriteFile(audio, []byte("RIFF fake pcm"), 0o644); err != nil {
		t.Fatal(err)
	}
	return BaselineArtifacts{
		MediaID:   mediaID,
		AudioPath: audio,
		Segments: []Segment{
			{Start: 0, End: 2.5, Text: "hello there"},
			{Start: 2.5, End: 4.1, Text: "general greeting"},
		},
		AlignedSegments: []Segment{
			{Start: 0, End: 2.5, Text: "hello there", Words: []Word{{Start: 0, End: 0.6, Word: "hello", Score: 0.98}}},
		},
		VADSegments: []VADSpan{{Start: 0, End: 4.1}},
		Metadata:    Metadata{DurationSeconds: 4.1},
	}
}

func TestBaselineRoundTrip(t *testing.T) {
	store := New(t.TempDir(), nil)
	in := testArtifacts(t, "media-aaa")
	in.Diarization = &Diarization{
		Turns:    []SpeakerTurn{{Start: 0, End: 4.1, Speaker: "SPEAKER_00"}},
		Speakers: []string{"SPEAKER_00"},
	}

	if store.HasBaseline("media-aaa") {
		t.Fatal("empty store must not report a baseline")
	}
	if !store.StoreBaseline(context.Background(), in) {
		t.Fatal("store should succeed")
	}
	if !store.HasBaseline("media-aaa") {
		t.Fatal("stored baseline should be reported present")
	}

	out, ok := store.GetBaseline(context.Background(), "media-aaa")
	if !ok {
		t.Fatal("stored baseline should load")
	}
	if len(out.Segments) != 2 || out.Segments[1].Text != "general greeting" {
		t.Errorf("segments did not round-trip: %+v", out.Segments)
	}
	if len(out.AlignedSegments) != 1 || len(out.AlignedSegments[0].Words) != 1 {
		t.Errorf("aligned segments did not round-trip: %+v", out.AlignedSegments)
	}
	if len(out.VADSegments) != 1 || out.VADSegments[0].End != 4.1 {
		t.Errorf("vad spans did not round-trip: %+v", out.VADSegments)
	}
	if out.Diarization == nil || out.Diarization.Turns[0].Speaker != "SPEAKER_00" {
		t.Errorf("diarization did not round-trip: %+v", out.Diarization)
	}
	if out.Metadata.FormatVersion != FormatVersion {
		t.Errorf("metadata should carry the current format version: %d", out.Metadata.FormatVersion)
	}
	if out.Metadata.SegmentCount != 2 || out.Metadata.VADCount != 1 || !out.Metadata.HasDiarization {
		t.Errorf("metadata counts wrong: %+v", out.Metadata)
	}

	data, err := os.ReadFile(out.AudioPath)
	if err != nil || string(data) != "RIFF fake pcm" {
		t.Errorf("audio copy mismatch: %q err=%v", data, err)
	}
	if out.AudioPath == in.AudioPath {
		t.Error("loaded audio path must be the store's own copy")
	}
}

func TestBaselineWithoutDiarizationIsComplete(t *testing.T) {
	store := New(t.TempDir(), nil)
	if !store.StoreBaseline(context.Background(), testArtifacts(t, "media-bbb")) {
		t.Fatal("store should succeed")
	}
	out, ok := store.GetBaseline(context.Background(), "media-bbb")
	if !ok {
		t.Fatal("baseline without diarization should still load")
	}
	if out.Diarization != nil {
		t.Error("diarization should be nil when never stored")
	}
	if out.Metadata.HasDiarization {
		t.Error("metadata should record diarization absence")
	}
}

func TestHasBaselineRequiresAllCoreFiles(t *testing.T) {
	for _, name := range []string{segmentsFileName, alignedFileName, vadFileName, metadataFileName, defaultAudioName} {
		t.Run(name, func(t *testing.T) {
			store := New(t.TempDir(), nil)
			if !store.StoreBaseline(context.Background(), testArtifacts(t, "media-ccc")) {
				t.Fatal("store should succeed")
			}
			if err := os.Remove(filepath.Join(store.baselineDir("media-ccc"), name)); err != nil {
				t.Fatal(err)
			}
			if store.HasBaseline("media-ccc") {
				t.Errorf("baseline missing %s must read as absent", name)
			}
			if _, ok := store.GetBaseline(context.Background(), "media-ccc"); ok {
				t.Errorf("baseline missing %s must not load", name)
			}
		})
	}
}

func TestCorruptEntryIsMissNotError(t *testing.T) {
	store := New(t.TempDir(), nil)
	if !store.StoreBaseline(context.Background(), testArtifacts(t, "media-ddd")) {
		t.Fatal("store should succeed")
	}
	path := filepath.Join(store.baselineDir("media-ddd"), segmentsFileName)
	if err := os.WriteFile(path, []byte("{truncated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.GetBaseline(context.Background(), "media-ddd"); ok {
		t.Error("corrupt segments must read as a miss")
	}

	// A fresh store over the corrupt entry makes it usable again.
	if !store.StoreBaseline(context.Background(), testArtifacts(t, "media-ddd")) {
		t.Fatal("re-store over corrupt entry should succeed")
	}
	if _, ok := store.GetBaseline(context.Background(), "media-ddd"); !ok {
		t.Error("re-stored entry should load")
	}
}

func TestFormatVersionMismatchIsMiss(t *testing.T) {
	store := New(t.TempDir(), nil)
	if !store.StoreBaseline(context.Background(), testArtifacts(t, "media-eee")) {
		t.Fatal("store should succeed")
	}

	metaPath := filepath.Join(store.baselineDir("media-eee"), metadataFileName)
	data, err := os.ReadFile(metaPath)
	if err != nil {
		t.Fatal(err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatal(err)
	}
	meta.FormatVersion = FormatVersion + 1
	updated, err := json.Marshal(meta)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(metaPath, updated, 0o644); err != nil {
		t.Fatal(err)
	}

	if store.HasBaseline("media-eee") {
		t.Error("different format version must read as absent")
	}
}

func TestStoreBaselineRejectsIncompleteArtifacts(t *testing.T) {
	store := New(t.TempDir(), nil)
	if store.StoreBaseline(context.Background(), BaselineArtifacts{MediaID: "media-fff"}) {
		t.Error("store without an audio path must fail")
	}
	if store.StoreBaseline(context.Background(), BaselineArtifacts{AudioPath: "/tmp/x.wav"}) {
		t.Error("store without a media id must fail")
	}
	in := testArtifacts(t, "media-fff")
	in.AudioPath = filepath.Join(t.TempDir(), "does-not-exist.wav")
	if store.StoreBaseline(context.Background(), in) {
		t.Error("store with an unreadable audio source must fail")
	}
	if store.HasBaseline("media-fff") {
		t.Error("failed store must not leave a readable entry")
	}
}

func TestStoreBaselineOverwriteDropsStaleDiarization(t *testing.T) {
	store := New(t.TempDir(), nil)
	in := testArtifacts(t, "media-ggg")
	in.Diarization = &Diarization{Turns: []SpeakerTurn{{Start: 0, End: 1, Speaker: "SPEAKER_00"}}}
	if !store.StoreBaseline(context.Background(), in) {
		t.Fatal("store should succeed")
	}

	in.Diarization = nil
	if !store.StoreBaseline(context.Background(), in) {
		t.Fatal("store should succeed")
	}
	out, ok := store.GetBaseline(context.Background(), "media-ggg")
	if !ok {
		t.Fatal("overwritten baseline should load")
	}
	if out.Diarization != nil {
		t.Error("overwrite without diarization must remove the stale file")
	}
}

func TestClearBaselineIsIdempotentAndScoped(t *testing.T) {
	store := New(t.TempDir(), nil)
	if !store.StoreBaseline(context.Background(), testArtifacts(t, "media-hhh")) {
		t.Fatal("store should succeed")
	}
	if !store.StoreGlossary(context.Background(), GlossaryResults{
		MediaID:         "media-hhh",
		GlossaryHash:    "hash-1",
		AppliedSegments: []Segment{{Text: "hi"}},
		QualityMetrics:  map[string]float64{"coverage": 0.9},
	}) {
		t.Fatal("glossary store should succeed")
	}

	if !store.ClearBaseline(context.Background(), "media-hhh") {
		t.Fatal("clear should succeed")
	}
	if store.HasBaseline("media-hhh") {
		t.Error("cleared baseline must be absent")
	}
	if !store.HasGlossary("media-hhh", "hash-1") {
		t.Error("clearing the baseline must not touch glossary entries")
	}
	if !store.ClearBaseline(context.Background(), "media-hhh") {
		t.Error("clearing an absent baseline must succeed")
	}
}

func TestGlossaryKeyIsolation(t *testing.T) {
	store := New(t.TempDir(), nil)
	first := GlossaryResults{
		MediaID:         "media-iii",
		GlossaryHash:    "hash-old",
		AppliedSegments: []Segment{{Text: "old term"}},
		QualityMetrics:  map[string]float64{"coverage": 0.5},
	}
	second := first
	second.GlossaryHash = "hash-new"
	second.AppliedSegments = []Segment{{Text: "new term"}}
	second.QualityMetrics = map[string]float64{"coverage": 0.95}

	if !store.StoreGlossary(context.Background(), first) || !store.StoreGlossary(context.Background(), second) {
		t.Fatal("both stores should succeed")
	}

	gotOld, ok := store.GetGlossary(context.Background(), "media-iii", "hash-old")
	if !ok || gotOld.AppliedSegments[0].Text != "old term" {
		t.Errorf("old glossary entry lost: %+v ok=%v", gotOld, ok)
	}
	gotNew, ok := store.GetGlossary(context.Background(), "media-iii", "hash-new")
	if !ok || gotNew.QualityMetrics["coverage"] != 0.95 {
		t.Errorf("new glossary entry wrong: %+v ok=%v", gotNew, ok)
	}
	if _, ok := store.GetGlossary(context.Background(), "media-iii", "hash-other"); ok {
		t.Error("unknown glossary hash must miss")
	}
	if gotNew.CreatedAt.IsZero() {
		t.Error("glossary load should carry its creation time")
	}
}

func TestClearGlossaryVariants(t *testing.T) {
	store := New(t.TempDir(), nil)
	for _, hash := range []string{"h1", "h2"} {
		if !store.StoreGlossary(context.Background(), GlossaryResults{
			MediaID: "media-jjj", GlossaryHash: hash,
			AppliedSegments: []Segment{{Text: hash}},
			QualityMetrics:  map[string]float64{},
		}) {
			t.Fatal("glossary store should succeed")
		}
	}

	if !store.ClearGlossary(context.Background(), "media-jjj", "h1") {
		t.Fatal("single clear should succeed")
	}
	if store.HasGlossary("media-jjj", "h1") || !store.HasGlossary("media-jjj", "h2") {
		t.Error("single clear must remove only the named hash")
	}

	if !store.ClearGlossary(context.Background(), "media-jjj", "") {
		t.Fatal("full clear should succeed")
	}
	if store.HasGlossary("media-jjj", "h2") {
		t.Error("empty hash must clear every glossary entry")
	}
}

func TestListAndStats(t *testing.T) {
	store := New(t.TempDir(), nil)

	entries, err := store.List()
	if err != nil || entries != nil {
		t.Fatalf("empty store should list nothing: %v %v", entries, err)
	}

	if !store.StoreBaseline(context.Background(), testArtifacts(t, "media-one")) {
		t.Fatal("store should succeed")
	}
	if !store.StoreBaseline(context.Background(), testArtifacts(t, "media-two")) {
		t.Fatal("store should succeed")
	}
	if !store.StoreGlossary(context.Background(), GlossaryResults{
		MediaID: "media-one", GlossaryHash: "h",
		AppliedSegments: []Segment{}, QualityMetrics: map[string]float64{},
	}) {
		t.Fatal("glossary store should succeed")
	}

	entries, err = store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].MediaID != "media-one" || entries[1].MediaID != "media-two" {
		t.Fatalf("unexpected listing: %+v", entries)
	}
	if !entries[0].HasBaseline || entries[0].GlossaryCount != 1 {
		t.Errorf("media-one entry wrong: %+v", entries[0])
	}
	if entries[1].GlossaryCount != 0 {
		t.Errorf("media-two should have no glossary entries: %+v", entries[1])
	}
	if entries[0].SizeBytes <= 0 {
		t.Error("entry size should be positive")
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 2 || stats.BaselineCount != 2 || stats.GlossaryCount != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.TotalSizeBytes <= 0 {
		t.Error("total size should be positive")
	}
	if stats.DiskTotalBytes == 0 {
		t.Error("disk capacity should be reported")
	}

	if !store.ClearAll(context.Background()) {
		t.Fatal("clear all should succeed")
	}
	entries, err = store.List()
	if err != nil || len(entries) != 0 {
		t.Errorf("cleared store should list nothing: %v %v", entries, err)
	}
}

func TestSizeScopedToMedia(t *testing.T) {
	store := New(t.TempDir(), nil)
	if !store.StoreBaseline(context.Background(), testArtifacts(t, "media-size")) {
		t.Fatal("store should succeed")
	}

	one, err := store.Size("media-size")
	if err != nil || one <= 0 {
		t.Fatalf("media size should be positive: %d %v", one, err)
	}
	all, err := store.Size("")
	if err != nil || all < one {
		t.Fatalf("store size should cover the entry: %d >= %d, %v", all, one, err)
	}
	none, err := store.Size("media-unknown")
	if err != nil || none != 0 {
		t.Fatalf("unknown media should size to zero: %d %v", none, err)
	}
}
