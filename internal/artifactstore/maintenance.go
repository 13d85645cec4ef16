package artifactstore

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sys/unix"

	"subpipe/internal/fileutil"
	"subpipe/internal/logging"
)

// Entry summarizes one cached media fingerprint for listings.
type Entry struct {
	MediaID       string
	HasBaseline   bool
	GlossaryCount int
	SizeBytes     int64
	Metadata      Metadata
}

// Stats describes store usage and the free space left on its filesystem.
type Stats struct {
	Entries        int
	BaselineCount  int
	GlossaryCount  int
	TotalSizeBytes int64
	FreeSpaceBytes uint64
	DiskTotalBytes uint64
}

// List returns one entry per cached media id, sorted by id. Metadata is
// populated when the baseline's metadata file parses.
func (s *Store) List() ([]Entry, error) {
	mediaRoot := filepath.Join(s.root, mediaDirName)
	dirents, err := os.ReadDir(mediaRoot)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(dirents))
	for _, dirent := range dirents {
		if !dirent.IsDir() {
			continue
		}
		mediaID := dirent.Name()
		entry := Entry{
			MediaID:     mediaID,
			HasBaseline: s.HasBaseline(mediaID),
		}
		if meta, ok := readMetadata(s.baselineDir(mediaID)); ok {
			entry.Metadata = meta
		}
		if hashes, err := os.ReadDir(filepath.Join(s.mediaDir(mediaID), glossaryDirName)); err == nil {
			for _, h := range hashes {
				if h.IsDir() {
					entry.GlossaryCount++
				}
			}
		}
		size, err := fileutil.DirSize(s.mediaDir(mediaID))
		if err != nil {
			return nil, err
		}
		entry.SizeBytes = size
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].MediaID < entries[j].MediaID })
	return entries, nil
}

// Size returns the on-disk size of one media entry, or of the whole store
// when mediaID is empty. Absent paths count as zero.
func (s *Store) Size(mediaID string) (int64, error) {
	if mediaID == "" {
		return fileutil.DirSize(s.root)
	}
	return fileutil.DirSize(s.mediaDir(mediaID))
}

// Stats aggregates entry counts, total size, and the backing filesystem's
// capacity.
func (s *Store) Stats() (Stats, error) {
	entries, err := s.List()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Entries: len(entries)}
	for _, entry := range entries {
		if entry.HasBaseline {
			stats.BaselineCount++
		}
		stats.GlossaryCount += entry.GlossaryCount
		stats.TotalSizeBytes += entry.SizeBytes
	}

	statTarget := s.root
	if !fileutil.FileExists(statTarget) {
		statTarget = filepath.Dir(s.root)
	}
	var fs unix.Statfs_t
	if err := unix.Statfs(statTarget, &fs); err == nil {
		stats.FreeSpaceBytes = fs.Bavail * uint64(fs.Bsize)
		stats.DiskTotalBytes = fs.Blocks * uint64(fs.Bsize)
	}
	return stats, nil
}

// ClearAll removes every cached entry and leaves an empty store root behind.
func (s *Store) ClearAll(ctx context.Context) bool {
	if err := os.RemoveAll(filepath.Join(s.root, mediaDirName)); err != nil {
		s.logger.WarnContext(ctx, "cache clear failed", logging.Error(err))
		return false
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		s.logger.WarnContext(ctx, "cache clear failed", logging.Error(err))
		return false
	}
	s.logger.InfoContext(ctx, "cache cleared",
		logging.String(logging.FieldEventType, logging.EventCacheInvalidated))
	return true
}
