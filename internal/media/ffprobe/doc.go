// Package ffprobe wraps ffprobe JSON inspection for container duration and
// stream layout queries.
package ffprobe
