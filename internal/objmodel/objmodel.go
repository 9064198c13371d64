// Package objmodel holds the data types that flow through the sync
// pipeline: ObjectEntry (spec.md §3), the plans the Differ produces, and the
// outcomes the Transferrer and Reporter consume.
package objmodel

import (
	"strings"
	"time"
)

// ChecksumAlgorithm identifies one of S3's additional-checksum algorithms.
type ChecksumAlgorithm string

const (
	ChecksumNone      ChecksumAlgorithm = ""
	ChecksumCRC32     ChecksumAlgorithm = "CRC32"
	ChecksumCRC32C    ChecksumAlgorithm = "CRC32C"
	ChecksumCRC64NVME ChecksumAlgorithm = "CRC64NVME"
	ChecksumSHA1      ChecksumAlgorithm = "SHA1"
	ChecksumSHA256    ChecksumAlgorithm = "SHA256"
)

// AdditionalChecksum is the tagged union of spec.md §3: at most one
// algorithm's digest, optionally suffixed "-N" for a composite multipart
// checksum where N is the part count.
type AdditionalChecksum struct {
	Algorithm ChecksumAlgorithm
	// Value is the raw (non-base64) digest bytes for a single-part object,
	// or the raw digest of the concatenated per-part digests for a
	// multipart object (see PartCount).
	Value []byte
	// PartCount is 0 for a single-part checksum, or N for a composite
	// "-N" suffixed checksum.
	PartCount int
}

// IsZero reports whether no additional checksum is present.
func (c AdditionalChecksum) IsZero() bool { return c.Algorithm == ChecksumNone }

// SSEType identifies the server-side-encryption mode applied to an object.
type SSEType string

const (
	SSENone   SSEType = ""
	SSEAES256 SSEType = "AES256"
	SSEKMS    SSEType = "aws:kms"
	SSEC      SSEType = "SSE-C"
)

// StorageClass mirrors the S3 storage-class header; local endpoints leave
// it empty.
type StorageClass string

// Tag is one element of an object's tag_set.
type Tag struct {
	Key   string
	Value string
}

// ObjectEntry is the unit flowing through the pipeline (spec.md §3).
type ObjectEntry struct {
	Key          string
	VersionID    string // empty when the endpoint is not version-enabled
	IsDeleteMarker bool
	Size         uint64
	LastModified time.Time // UTC, millisecond precision

	// ETag is opaque; for multipart objects it has the form "<hex>-<n>".
	ETag string

	AdditionalChecksum AdditionalChecksum

	StorageClass StorageClass
	SSEType      SSEType
	SSEKMSKeyID  string

	ContentType             string
	ContentEncoding         string
	ContentLanguage         string
	ContentDisposition      string
	CacheControl            string
	Expires                 *time.Time
	WebsiteRedirectLocation string

	// UserMetadata keys are treated case-insensitively by MetadataEqual.
	UserMetadata map[string]string
	TagSet       []Tag

	// OriginLastModified is only set when --put-last-modified-metadata is
	// in effect; it is stored under ReservedOriginLastModifiedKey.
	OriginLastModified *time.Time
}

// ReservedOriginLastModifiedKey is the user-metadata key
// --put-last-modified-metadata writes the source mtime under.
const ReservedOriginLastModifiedKey = "s3sync_origin_last_modified"

// IsEmptyDirMarker reports whether this entry represents an S3
// empty-directory marker (spec.md §3 invariant: size==0 && key ends in "/").
func (e ObjectEntry) IsEmptyDirMarker() bool {
	return e.Size == 0 && len(e.Key) > 0 && e.Key[len(e.Key)-1] == '/'
}

// TagsEqual compares two tag sets ignoring order (spec.md §3: "equality
// ignores order").
func TagsEqual(a, b []Tag) bool {
	if len(a) != len(b) {
		return false
	}
	am := make(map[string]string, len(a))
	for _, t := range a {
		am[t.Key] = t.Value
	}
	for _, t := range b {
		v, ok := am[t.Key]
		if !ok || v != t.Value {
			return false
		}
	}
	return true
}

// MetadataEqual compares user-metadata maps case-insensitively on keys.
func MetadataEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	lowerB := make(map[string]string, len(b))
	for k, v := range b {
		lowerB[strings.ToLower(k)] = v
	}
	for k, v := range a {
		if bv, ok := lowerB[strings.ToLower(k)]; !ok || bv != v {
			return false
		}
	}
	return true
}

// Action is the decision the Differ attaches to a TransferPlan.
type Action string

const (
	ActionSkip             Action = "skip"
	ActionTransferSingle   Action = "transfer_single_part"
	ActionTransferMultipart Action = "transfer_multipart"
	ActionDeleteTarget     Action = "delete_target"
)

// TransferPlan is produced by the Differ (spec.md §3).
type TransferPlan struct {
	Entry      ObjectEntry
	Action     Action
	ChunkSize  uint64 // only meaningful for ActionTransferMultipart
	PartCount  int    // only meaningful for ActionTransferMultipart
	Reason     string
}

// SyncOutcome is produced by the Transferrer (spec.md §3).
type SyncOutcome struct {
	Key              string
	VersionID        string
	Action           Action
	Bytes            uint64
	ETagVerified     bool
	ChecksumVerified bool
	Warning          string
	Error            error
}

// StatsCategory is one row of a SyncStatsReport.
type StatsCategory string

const (
	CategoryEtagMatches       StatsCategory = "etag_matches"
	CategoryChecksumMatches   StatsCategory = "checksum_matches"
	CategoryMetadataMatches   StatsCategory = "metadata_matches"
	CategoryTaggingMatches    StatsCategory = "tagging_matches"
	CategoryNotFound          StatsCategory = "not_found"
	CategoryEtagMismatch      StatsCategory = "etag_mismatch"
	CategoryChecksumMismatch  StatsCategory = "checksum_mismatch"
	CategoryMetadataMismatch  StatsCategory = "metadata_mismatch"
	CategoryTaggingMismatch   StatsCategory = "tagging_mismatch"
	CategoryEtagUnknown       StatsCategory = "etag_unknown"
	CategoryChecksumUnknown   StatsCategory = "checksum_unknown"
)

// SyncStatsReport is produced by the Reporter in --report-sync-status mode
// (spec.md §3).
type SyncStatsReport struct {
	NumberOfObjects  int
	EtagMatches      int
	ChecksumMatches  int
	MetadataMatches  int
	TaggingMatches   int
	NotFound         int
	EtagMismatch     int
	ChecksumMismatch int
	MetadataMismatch int
	TaggingMismatch  int
	EtagUnknown      int
	ChecksumUnknown  int
}

// Add increments the counter for the given category by one.
func (r *SyncStatsReport) Add(cat StatsCategory) {
	r.NumberOfObjects++
	switch cat {
	case CategoryEtagMatches:
		r.EtagMatches++
	case CategoryChecksumMatches:
		r.ChecksumMatches++
	case CategoryMetadataMatches:
		r.MetadataMatches++
	case CategoryTaggingMatches:
		r.TaggingMatches++
	case CategoryNotFound:
		r.NotFound++
	case CategoryEtagMismatch:
		r.EtagMismatch++
	case CategoryChecksumMismatch:
		r.ChecksumMismatch++
	case CategoryMetadataMismatch:
		r.MetadataMismatch++
	case CategoryTaggingMismatch:
		r.TaggingMismatch++
	case CategoryEtagUnknown:
		r.EtagUnknown++
	case CategoryChecksumUnknown:
		r.ChecksumUnknown++
	}
}

// AddOrthogonal records a metadata/tagging category without incrementing
// NumberOfObjects, since metadata/tagging rows are orthogonal extensions to
// the primary etag/checksum category (spec.md §8 report-completeness
// property only sums the primary categories).
func (r *SyncStatsReport) AddOrthogonal(cat StatsCategory) {
	switch cat {
	case CategoryMetadataMatches:
		r.MetadataMatches++
	case CategoryMetadataMismatch:
		r.MetadataMismatch++
	case CategoryTaggingMatches:
		r.TaggingMatches++
	case CategoryTaggingMismatch:
		r.TaggingMismatch++
	}
}
