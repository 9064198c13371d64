// Package chunkplanner decides single-part vs multipart layout for a
// transfer, implementing spec.md §4.5.
package chunkplanner

import (
	"github.com/yuya-takeyama/s3sync/internal/checksum"
)

const (
	// MinChunkSize is S3's minimum part size: 5 MiB.
	MinChunkSize uint64 = 5 * 1024 * 1024
	// MaxChunkSize is S3's maximum part size: 5 GiB.
	MaxChunkSize uint64 = 5 * 1024 * 1024 * 1024
	// MaxPartCount is S3's maximum number of parts per multipart upload.
	MaxPartCount = 10000
)

// Config holds the operator-configured knobs that feed chunk planning.
type Config struct {
	MultipartThreshold uint64
	MultipartChunkSize uint64
	AutoChunkSize      bool
}

// Layout is the chosen chunking for one object's transfer.
type Layout struct {
	Multipart bool
	ChunkSize uint64
	PartCount int
}

// Plan decides single vs multipart layout for an object of the given size.
//
// sourceMultipartETag, when non-empty and AutoChunkSize is set, is the
// source's own "<hex>-N" etag; when present the target chunk size is
// derived to reproduce the same part count bit-for-bit (spec.md §4.5,
// "auto-chunksize fidelity").
func Plan(size uint64, cfg Config, sourceMultipartETag string) Layout {
	if size < cfg.MultipartThreshold {
		return Layout{Multipart: false}
	}

	if cfg.AutoChunkSize {
		if _, n, ok := checksum.ParseMultipartETag(sourceMultipartETag); ok && n > 0 {
			chunkSize := ceilDiv(size, uint64(n))
			chunkSize = clamp(chunkSize)
			return Layout{Multipart: true, ChunkSize: chunkSize, PartCount: partCount(size, chunkSize)}
		}
	}

	chunkSize := cfg.MultipartChunkSize
	if chunkSize == 0 {
		chunkSize = MinChunkSize
	}
	chunkSize = clamp(chunkSize)

	parts := partCount(size, chunkSize)
	if parts > MaxPartCount {
		// Grow chunk size to the smallest value keeping part_count <= 10000.
		chunkSize = clamp(ceilDiv(size, MaxPartCount))
		parts = partCount(size, chunkSize)
	}

	return Layout{Multipart: true, ChunkSize: chunkSize, PartCount: parts}
}

func clamp(chunkSize uint64) uint64 {
	if chunkSize < MinChunkSize {
		return MinChunkSize
	}
	if chunkSize > MaxChunkSize {
		return MaxChunkSize
	}
	return chunkSize
}

func ceilDiv(a, b uint64) uint64 {
	if b == 0 {
		return a
	}
	return (a + b - 1) / b
}

func partCount(size, chunkSize uint64) int {
	if chunkSize == 0 {
		return 0
	}
	return int(ceilDiv(size, chunkSize))
}
