// Package endpoint defines the capability surface the Lister, Differ,
// Transferrer, and Deleter program against: a source or target can be an S3
// bucket/prefix or a local directory tree, and the rest of the pipeline
// never needs to know which.
package endpoint

import (
	"context"
	"io"

	"github.com/yuya-takeyama/s3sync/internal/objmodel"
)

// Capabilities describes what an Endpoint implementation can do, so the
// scheduler and CLI can reject flag combinations the endpoint can't satisfy
// (such rejections are CapabilityUnsupported errors).
type Capabilities struct {
	Versioning           bool
	ServerSideEncryption bool
	// SSEC reports whether the endpoint accepts customer-provided SSE-C
	// keys; false for a directory bucket (S3 Express One Zone) and for
	// Local, which has no encryption-at-rest concept of its own.
	SSEC               bool
	Tagging            bool
	AdditionalChecksum bool
	StorageClass       bool
}

// ListedEntry is one row produced while listing, in key order (and, for
// version-enabled endpoints, newest-version-first within a key).
type ListedEntry struct {
	Entry objmodel.ObjectEntry
	Err   error
}

// GetObjectInput addresses a single object read.
type GetObjectInput struct {
	Key       string
	VersionID string
	// RangeStart/RangeEnd select a byte range for multipart part downloads;
	// both zero means the whole object.
	RangeStart int64
	RangeEnd   int64
}

// PutObjectInput addresses a single-part upload.
type PutObjectInput struct {
	Entry             objmodel.ObjectEntry
	Body              io.Reader
	Size              int64
	ChecksumAlgorithm objmodel.ChecksumAlgorithm
	SSE               objmodel.SSEType
	SSEKMSKeyID       string
	ACL               string
}

// PutObjectOutput carries back what the endpoint actually recorded, so the
// Transferrer can verify it against the plan.
type PutObjectOutput struct {
	ETag               string
	AdditionalChecksum objmodel.AdditionalChecksum
}

// CreateMultipartInput addresses the start of a multipart upload.
type CreateMultipartInput struct {
	Entry             objmodel.ObjectEntry
	ChecksumAlgorithm objmodel.ChecksumAlgorithm
	SSE               objmodel.SSEType
	SSEKMSKeyID       string
	ACL               string
}

// UploadPartInput addresses one part of an in-progress multipart upload.
type UploadPartInput struct {
	Key        string
	UploadID   string
	PartNumber int32
	Body       io.Reader
	Size       int64
}

// UploadPartOutput is returned per uploaded part, for the CompletedPart list.
type UploadPartOutput struct {
	ETag               string
	AdditionalChecksum objmodel.AdditionalChecksum
}

// CompletedPart is what CompleteMultipart needs per part.
type CompletedPart struct {
	PartNumber         int32
	ETag               string
	AdditionalChecksum objmodel.AdditionalChecksum
}

// Endpoint is the capability interface spec.md §4 assumes for both the
// source and target of a sync: list, read, write, and delete, all
// context-bound so cancellation and deadlines propagate to the network or
// filesystem call underneath.
type Endpoint interface {
	Capabilities() Capabilities

	// List streams every entry under the configured root to the returned
	// channel; the channel is closed when listing completes or ctx is
	// cancelled. A terminal listing error is sent as a ListedEntry with Err
	// set, as the final value before the channel closes.
	List(ctx context.Context) (<-chan ListedEntry, error)

	// Head returns the current entry for key, or an *errs.Error with
	// Kind==NotFound if it does not exist.
	Head(ctx context.Context, key, versionID string) (objmodel.ObjectEntry, error)

	GetObject(ctx context.Context, in GetObjectInput) (io.ReadCloser, objmodel.ObjectEntry, error)

	PutObject(ctx context.Context, in PutObjectInput) (PutObjectOutput, error)

	CreateMultipartUpload(ctx context.Context, in CreateMultipartInput) (uploadID string, err error)
	UploadPart(ctx context.Context, in UploadPartInput) (UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []CompletedPart) (PutObjectOutput, error)
	AbortMultipartUpload(ctx context.Context, key, uploadID string) error

	DeleteObject(ctx context.Context, key, versionID string) error

	GetTagging(ctx context.Context, key, versionID string) ([]objmodel.Tag, error)
	PutTagging(ctx context.Context, key, versionID string, tags []objmodel.Tag) error
	DeleteTagging(ctx context.Context, key, versionID string) error
}
