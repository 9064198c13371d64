// Package s3endpoint implements endpoint.Endpoint against an S3
// bucket/prefix, grounded on the teacher's internal/s3client.Client: the
// same aws-sdk-go-v2 client, the same retry wrapper shape, generalized from
// the teacher's per-call methods into the full endpoint.Endpoint surface
// spec.md §4 requires (versioned listing, multipart, tagging, SSE-C).
package s3endpoint

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/yuya-takeyama/s3sync/internal/endpoint"
	"github.com/yuya-takeyama/s3sync/internal/errs"
	"github.com/yuya-takeyama/s3sync/internal/objmodel"
)

// SSEC holds an SSE-C key triplet, base64-encoded as the AWS API expects.
type SSEC struct {
	Algorithm string
	Key       string
	KeyMD5    string
}

// Config addresses one S3 bucket/prefix endpoint.
type Config struct {
	Bucket    string
	Prefix    string
	Versioned bool // list ListObjectVersions instead of ListObjectsV2

	// MaxKeys bounds each List/ListObjectVersions page (spec.md §6
	// --max-keys, default 1000). The paginator requests one page at a
	// time regardless, so this only controls a page's size, never how
	// many pages are fetched.
	MaxKeys int32

	// ReadSSEC/WriteSSEC supply the customer key for reading from (resp.
	// writing to) an SSE-C protected bucket, per spec.md §6
	// --source-sse-c*/--target-sse-c* flags.
	ReadSSEC  *SSEC
	WriteSSEC *SSEC
}

func (c Config) maxKeys() *int32 {
	if c.MaxKeys <= 0 {
		return nil
	}
	return aws.Int32(c.MaxKeys)
}

// Endpoint implements endpoint.Endpoint against S3.
type Endpoint struct {
	client  *s3.Client
	cfg     Config
	retrier retrier
}

// New wraps an already-configured aws-sdk-go-v2 s3.Client.
func New(client *s3.Client, cfg Config) *Endpoint {
	return &Endpoint{client: client, cfg: cfg, retrier: newRetrier()}
}

// isDirectoryBucket reports whether bucket addresses an S3 Express One
// Zone directory bucket, identifiable from its required
// "--<az-id>--x-s3" name suffix. Directory buckets don't support
// versioning or SSE-C (spec.md §9 Open Question, resolved in DESIGN.md).
func isDirectoryBucket(bucket string) bool {
	return strings.HasSuffix(bucket, "--x-s3")
}

func (e *Endpoint) Capabilities() endpoint.Capabilities {
	dirBucket := isDirectoryBucket(e.cfg.Bucket)
	return endpoint.Capabilities{
		Versioning:           !dirBucket,
		ServerSideEncryption: true,
		SSEC:                 !dirBucket,
		Tagging:              true,
		AdditionalChecksum:   true,
		StorageClass:         true,
	}
}

func (e *Endpoint) key(key string) string {
	return e.cfg.Prefix + key
}

func (e *Endpoint) stripPrefix(key string) string {
	return strings.TrimPrefix(key, e.cfg.Prefix)
}

// List streams every object under the configured prefix. In non-versioned
// mode it drives ListObjectsV2Paginator; in versioned mode it drives
// ListObjectVersionsPaginator and emits each key's versions newest-first
// with delete markers folded in, per spec.md §4.2.
func (e *Endpoint) List(ctx context.Context) (<-chan endpoint.ListedEntry, error) {
	out := make(chan endpoint.ListedEntry, 256)
	go func() {
		defer close(out)
		if e.cfg.Versioned {
			e.listVersioned(ctx, out)
			return
		}
		e.listFlat(ctx, out)
	}()
	return out, nil
}

func (e *Endpoint) listFlat(ctx context.Context, out chan<- endpoint.ListedEntry) {
	paginator := s3.NewListObjectsV2Paginator(e.client, &s3.ListObjectsV2Input{
		Bucket:  aws.String(e.cfg.Bucket),
		Prefix:  aws.String(e.cfg.Prefix),
		MaxKeys: e.cfg.maxKeys(),
	})
	for paginator.HasMorePages() {
		var page *s3.ListObjectsV2Output
		err := e.retrier.do(ctx, nil, func() error {
			var innerErr error
			page, innerErr = paginator.NextPage(ctx)
			return innerErr
		})
		if err != nil {
			send(ctx, out, endpoint.ListedEntry{Err: errs.Wrap(errs.Transport, e.cfg.Bucket, err)})
			return
		}
		for _, obj := range page.Contents {
			entry := objectToEntry(obj, e.stripPrefix(aws.ToString(obj.Key)))
			if !send(ctx, out, endpoint.ListedEntry{Entry: entry}) {
				return
			}
		}
	}
}

func (e *Endpoint) listVersioned(ctx context.Context, out chan<- endpoint.ListedEntry) {
	paginator := s3.NewListObjectVersionsPaginator(e.client, &s3.ListObjectVersionsInput{
		Bucket:  aws.String(e.cfg.Bucket),
		Prefix:  aws.String(e.cfg.Prefix),
		MaxKeys: e.cfg.maxKeys(),
	})

	type keyed struct {
		entry objmodel.ObjectEntry
	}

	for paginator.HasMorePages() {
		var page *s3.ListObjectVersionsOutput
		err := e.retrier.do(ctx, nil, func() error {
			var innerErr error
			page, innerErr = paginator.NextPage(ctx)
			return innerErr
		})
		if err != nil {
			send(ctx, out, endpoint.ListedEntry{Err: errs.Wrap(errs.Transport, e.cfg.Bucket, err)})
			return
		}

		all := make([]keyed, 0, len(page.Versions)+len(page.DeleteMarkers))
		for _, v := range page.Versions {
			entry := versionToEntry(v, e.stripPrefix(aws.ToString(v.Key)))
			all = append(all, keyed{entry: entry})
		}
		for _, dm := range page.DeleteMarkers {
			entry := deleteMarkerToEntry(dm, e.stripPrefix(aws.ToString(dm.Key)))
			all = append(all, keyed{entry: entry})
		}

		sort.SliceStable(all, func(i, j int) bool {
			if all[i].entry.Key != all[j].entry.Key {
				return all[i].entry.Key < all[j].entry.Key
			}
			return all[i].entry.LastModified.After(all[j].entry.LastModified)
		})

		for _, k := range all {
			if !send(ctx, out, endpoint.ListedEntry{Entry: k.entry}) {
				return
			}
		}
	}
}

func send(ctx context.Context, out chan<- endpoint.ListedEntry, e endpoint.ListedEntry) bool {
	select {
	case out <- e:
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *Endpoint) Head(ctx context.Context, key, versionID string) (objmodel.ObjectEntry, error) {
	input := &s3.HeadObjectInput{
		Bucket:       aws.String(e.cfg.Bucket),
		Key:          aws.String(e.key(key)),
		ChecksumMode: types.ChecksumModeEnabled,
	}
	if versionID != "" {
		input.VersionId = aws.String(versionID)
	}
	applyReadSSEC(input, e.cfg.ReadSSEC)

	var out *s3.HeadObjectOutput
	notFound := func(err error) bool {
		var nf *types.NotFound
		return errors.As(err, &nf)
	}
	err := e.retrier.do(ctx, notFound, func() error {
		var innerErr error
		out, innerErr = e.client.HeadObject(ctx, input)
		return innerErr
	})
	if err != nil {
		if notFound(err) {
			return objmodel.ObjectEntry{}, errs.New(errs.NotFound, key, "object not found")
		}
		return objmodel.ObjectEntry{}, errs.Wrap(errs.Transport, key, err)
	}
	return headOutputToEntry(out, key), nil
}

func (e *Endpoint) GetObject(ctx context.Context, in endpoint.GetObjectInput) (io.ReadCloser, objmodel.ObjectEntry, error) {
	input := &s3.GetObjectInput{Bucket: aws.String(e.cfg.Bucket), Key: aws.String(e.key(in.Key))}
	if in.VersionID != "" {
		input.VersionId = aws.String(in.VersionID)
	}
	if in.RangeEnd > 0 {
		input.Range = aws.String(fmt.Sprintf("bytes=%d-%d", in.RangeStart, in.RangeEnd))
	}
	applyReadSSEC(input, e.cfg.ReadSSEC)

	var out *s3.GetObjectOutput
	err := e.retrier.do(ctx, nil, func() error {
		var innerErr error
		out, innerErr = e.client.GetObject(ctx, input)
		return innerErr
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, objmodel.ObjectEntry{}, errs.New(errs.NotFound, in.Key, "object not found")
		}
		return nil, objmodel.ObjectEntry{}, errs.Wrap(errs.Transport, in.Key, err)
	}
	return out.Body, getOutputToEntry(out, in.Key), nil
}

func (e *Endpoint) PutObject(ctx context.Context, in endpoint.PutObjectInput) (endpoint.PutObjectOutput, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(e.cfg.Bucket),
		Key:           aws.String(e.key(in.Entry.Key)),
		Body:          in.Body,
		ContentLength: aws.Int64(in.Size),
	}
	applyEntryMetadata(input, in.Entry)
	applyChecksumAlgorithm(input, in.ChecksumAlgorithm)
	applySSE(input, in.SSE, in.SSEKMSKeyID)
	applyWriteSSEC(input, e.cfg.WriteSSEC)
	if in.ACL != "" {
		input.ACL = types.ObjectCannedACL(in.ACL)
	}

	var out *s3.PutObjectOutput
	err := e.retrier.do(ctx, nil, func() error {
		var innerErr error
		out, innerErr = e.client.PutObject(ctx, input)
		return innerErr
	})
	if err != nil {
		return endpoint.PutObjectOutput{}, errs.Wrap(errs.Transport, in.Entry.Key, err)
	}
	return endpoint.PutObjectOutput{
		ETag:               trimQuotes(aws.ToString(out.ETag)),
		AdditionalChecksum: putOutputChecksum(out, in.ChecksumAlgorithm),
	}, nil
}

func (e *Endpoint) CreateMultipartUpload(ctx context.Context, in endpoint.CreateMultipartInput) (string, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(e.cfg.Bucket),
		Key:    aws.String(e.key(in.Entry.Key)),
	}
	applyEntryMetadataMultipart(input, in.Entry)
	applyChecksumAlgorithmMultipart(input, in.ChecksumAlgorithm)
	applySSEMultipart(input, in.SSE, in.SSEKMSKeyID)
	applyWriteSSECMultipart(input, e.cfg.WriteSSEC)
	if in.ACL != "" {
		input.ACL = types.ObjectCannedACL(in.ACL)
	}

	var out *s3.CreateMultipartUploadOutput
	err := e.retrier.do(ctx, nil, func() error {
		var innerErr error
		out, innerErr = e.client.CreateMultipartUpload(ctx, input)
		return innerErr
	})
	if err != nil {
		return "", errs.Wrap(errs.Transport, in.Entry.Key, err)
	}
	return aws.ToString(out.UploadId), nil
}

func (e *Endpoint) UploadPart(ctx context.Context, in endpoint.UploadPartInput) (endpoint.UploadPartOutput, error) {
	input := &s3.UploadPartInput{
		Bucket:        aws.String(e.cfg.Bucket),
		Key:           aws.String(e.key(in.Key)),
		UploadId:      aws.String(in.UploadID),
		PartNumber:    aws.Int32(in.PartNumber),
		Body:          in.Body,
		ContentLength: aws.Int64(in.Size),
	}
	applyWriteSSEC(input, e.cfg.WriteSSEC)

	var out *s3.UploadPartOutput
	err := e.retrier.do(ctx, nil, func() error {
		var innerErr error
		out, innerErr = e.client.UploadPart(ctx, input)
		return innerErr
	})
	if err != nil {
		return endpoint.UploadPartOutput{}, errs.Wrap(errs.Transport, in.Key, err)
	}
	return endpoint.UploadPartOutput{ETag: trimQuotes(aws.ToString(out.ETag))}, nil
}

func (e *Endpoint) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []endpoint.CompletedPart) (endpoint.PutObjectOutput, error) {
	completed := make([]types.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = types.CompletedPart{
			ETag:       aws.String(`"` + p.ETag + `"`),
			PartNumber: aws.Int32(p.PartNumber),
		}
	}
	input := &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(e.cfg.Bucket),
		Key:             aws.String(e.key(key)),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	}

	var out *s3.CompleteMultipartUploadOutput
	err := e.retrier.do(ctx, nil, func() error {
		var innerErr error
		out, innerErr = e.client.CompleteMultipartUpload(ctx, input)
		return innerErr
	})
	if err != nil {
		return endpoint.PutObjectOutput{}, errs.Wrap(errs.Transport, key, err)
	}
	return endpoint.PutObjectOutput{ETag: trimQuotes(aws.ToString(out.ETag))}, nil
}

func (e *Endpoint) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	input := &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(e.cfg.Bucket),
		Key:      aws.String(e.key(key)),
		UploadId: aws.String(uploadID),
	}
	err := e.retrier.do(ctx, nil, func() error {
		_, innerErr := e.client.AbortMultipartUpload(ctx, input)
		return innerErr
	})
	if err != nil {
		return errs.Wrap(errs.Transport, key, err)
	}
	return nil
}

func (e *Endpoint) DeleteObject(ctx context.Context, key, versionID string) error {
	input := &s3.DeleteObjectInput{Bucket: aws.String(e.cfg.Bucket), Key: aws.String(e.key(key))}
	if versionID != "" {
		input.VersionId = aws.String(versionID)
	}
	err := e.retrier.do(ctx, nil, func() error {
		_, innerErr := e.client.DeleteObject(ctx, input)
		return innerErr
	})
	if err != nil {
		return errs.Wrap(errs.Transport, key, err)
	}
	return nil
}

func (e *Endpoint) GetTagging(ctx context.Context, key, versionID string) ([]objmodel.Tag, error) {
	input := &s3.GetObjectTaggingInput{Bucket: aws.String(e.cfg.Bucket), Key: aws.String(e.key(key))}
	if versionID != "" {
		input.VersionId = aws.String(versionID)
	}
	var out *s3.GetObjectTaggingOutput
	err := e.retrier.do(ctx, nil, func() error {
		var innerErr error
		out, innerErr = e.client.GetObjectTagging(ctx, input)
		return innerErr
	})
	if err != nil {
		return nil, errs.Wrap(errs.Transport, key, err)
	}
	tags := make([]objmodel.Tag, len(out.TagSet))
	for i, t := range out.TagSet {
		tags[i] = objmodel.Tag{Key: aws.ToString(t.Key), Value: aws.ToString(t.Value)}
	}
	return tags, nil
}

func (e *Endpoint) PutTagging(ctx context.Context, key, versionID string, tags []objmodel.Tag) error {
	set := make([]types.Tag, len(tags))
	for i, t := range tags {
		set[i] = types.Tag{Key: aws.String(t.Key), Value: aws.String(t.Value)}
	}
	input := &s3.PutObjectTaggingInput{
		Bucket:  aws.String(e.cfg.Bucket),
		Key:     aws.String(e.key(key)),
		Tagging: &types.Tagging{TagSet: set},
	}
	if versionID != "" {
		input.VersionId = aws.String(versionID)
	}
	err := e.retrier.do(ctx, nil, func() error {
		_, innerErr := e.client.PutObjectTagging(ctx, input)
		return innerErr
	})
	if err != nil {
		return errs.Wrap(errs.Transport, key, err)
	}
	return nil
}

func (e *Endpoint) DeleteTagging(ctx context.Context, key, versionID string) error {
	input := &s3.DeleteObjectTaggingInput{Bucket: aws.String(e.cfg.Bucket), Key: aws.String(e.key(key))}
	if versionID != "" {
		input.VersionId = aws.String(versionID)
	}
	err := e.retrier.do(ctx, nil, func() error {
		_, innerErr := e.client.DeleteObjectTagging(ctx, input)
		return innerErr
	})
	if err != nil {
		return errs.Wrap(errs.Transport, key, err)
	}
	return nil
}

func trimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

func applyReadSSEC(input interface{}, c *SSEC) {
	if c == nil {
		return
	}
	switch v := input.(type) {
	case *s3.HeadObjectInput:
		v.SSECustomerAlgorithm = aws.String(c.Algorithm)
		v.SSECustomerKey = aws.String(c.Key)
		v.SSECustomerKeyMD5 = aws.String(c.KeyMD5)
	case *s3.GetObjectInput:
		v.SSECustomerAlgorithm = aws.String(c.Algorithm)
		v.SSECustomerKey = aws.String(c.Key)
		v.SSECustomerKeyMD5 = aws.String(c.KeyMD5)
	}
}

func applyWriteSSEC(input interface{}, c *SSEC) {
	if c == nil {
		return
	}
	switch v := input.(type) {
	case *s3.PutObjectInput:
		v.SSECustomerAlgorithm = aws.String(c.Algorithm)
		v.SSECustomerKey = aws.String(c.Key)
		v.SSECustomerKeyMD5 = aws.String(c.KeyMD5)
	case *s3.UploadPartInput:
		v.SSECustomerAlgorithm = aws.String(c.Algorithm)
		v.SSECustomerKey = aws.String(c.Key)
		v.SSECustomerKeyMD5 = aws.String(c.KeyMD5)
	}
}

func applyWriteSSECMultipart(input *s3.CreateMultipartUploadInput, c *SSEC) {
	if c == nil {
		return
	}
	input.SSECustomerAlgorithm = aws.String(c.Algorithm)
	input.SSECustomerKey = aws.String(c.Key)
	input.SSECustomerKeyMD5 = aws.String(c.KeyMD5)
}

func applySSE(input *s3.PutObjectInput, sse objmodel.SSEType, kmsKeyID string) {
	switch sse {
	case objmodel.SSEAES256:
		input.ServerSideEncryption = types.ServerSideEncryptionAes256
	case objmodel.SSEKMS:
		input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
		if kmsKeyID != "" {
			input.SSEKMSKeyId = aws.String(kmsKeyID)
		}
	}
}

func applySSEMultipart(input *s3.CreateMultipartUploadInput, sse objmodel.SSEType, kmsKeyID string) {
	switch sse {
	case objmodel.SSEAES256:
		input.ServerSideEncryption = types.ServerSideEncryptionAes256
	case objmodel.SSEKMS:
		input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
		if kmsKeyID != "" {
			input.SSEKMSKeyId = aws.String(kmsKeyID)
		}
	}
}

func applyEntryMetadata(input *s3.PutObjectInput, entry objmodel.ObjectEntry) {
	if entry.ContentType != "" {
		input.ContentType = aws.String(entry.ContentType)
	}
	if entry.ContentEncoding != "" {
		input.ContentEncoding = aws.String(entry.ContentEncoding)
	}
	if entry.CacheControl != "" {
		input.CacheControl = aws.String(entry.CacheControl)
	}
	if entry.StorageClass != "" {
		input.StorageClass = types.StorageClass(entry.StorageClass)
	}
	if len(entry.UserMetadata) > 0 {
		input.Metadata = entry.UserMetadata
	}
	if entry.OriginLastModified != nil {
		if input.Metadata == nil {
			input.Metadata = map[string]string{}
		}
		input.Metadata[objmodel.ReservedOriginLastModifiedKey] = strconv.FormatInt(entry.OriginLastModified.UnixMilli(), 10)
	}
}

func applyEntryMetadataMultipart(input *s3.CreateMultipartUploadInput, entry objmodel.ObjectEntry) {
	if entry.ContentType != "" {
		input.ContentType = aws.String(entry.ContentType)
	}
	if entry.ContentEncoding != "" {
		input.ContentEncoding = aws.String(entry.ContentEncoding)
	}
	if entry.CacheControl != "" {
		input.CacheControl = aws.String(entry.CacheControl)
	}
	if entry.StorageClass != "" {
		input.StorageClass = types.StorageClass(entry.StorageClass)
	}
	if len(entry.UserMetadata) > 0 {
		input.Metadata = entry.UserMetadata
	}
	if entry.OriginLastModified != nil {
		if input.Metadata == nil {
			input.Metadata = map[string]string{}
		}
		input.Metadata[objmodel.ReservedOriginLastModifiedKey] = strconv.FormatInt(entry.OriginLastModified.UnixMilli(), 10)
	}
}

func applyChecksumAlgorithm(input *s3.PutObjectInput, alg objmodel.ChecksumAlgorithm) {
	if c, ok := toSDKChecksumAlgorithm(alg); ok {
		input.ChecksumAlgorithm = c
	}
}

func applyChecksumAlgorithmMultipart(input *s3.CreateMultipartUploadInput, alg objmodel.ChecksumAlgorithm) {
	if c, ok := toSDKChecksumAlgorithm(alg); ok {
		input.ChecksumAlgorithm = c
	}
}

func toSDKChecksumAlgorithm(alg objmodel.ChecksumAlgorithm) (types.ChecksumAlgorithm, bool) {
	switch alg {
	case objmodel.ChecksumCRC32:
		return types.ChecksumAlgorithmCrc32, true
	case objmodel.ChecksumCRC32C:
		return types.ChecksumAlgorithmCrc32c, true
	case objmodel.ChecksumCRC64NVME:
		return types.ChecksumAlgorithmCrc64nvme, true
	case objmodel.ChecksumSHA1:
		return types.ChecksumAlgorithmSha1, true
	case objmodel.ChecksumSHA256:
		return types.ChecksumAlgorithmSha256, true
	}
	return "", false
}

func putOutputChecksum(out *s3.PutObjectOutput, alg objmodel.ChecksumAlgorithm) objmodel.AdditionalChecksum {
	var b64 string
	switch alg {
	case objmodel.ChecksumCRC32:
		b64 = aws.ToString(out.ChecksumCRC32)
	case objmodel.ChecksumCRC32C:
		b64 = aws.ToString(out.ChecksumCRC32C)
	case objmodel.ChecksumCRC64NVME:
		b64 = aws.ToString(out.ChecksumCRC64NVME)
	case objmodel.ChecksumSHA1:
		b64 = aws.ToString(out.ChecksumSHA1)
	case objmodel.ChecksumSHA256:
		b64 = aws.ToString(out.ChecksumSHA256)
	default:
		return objmodel.AdditionalChecksum{}
	}
	if b64 == "" {
		return objmodel.AdditionalChecksum{}
	}
	raw, err := decodeBase64(b64)
	if err != nil {
		return objmodel.AdditionalChecksum{}
	}
	return objmodel.AdditionalChecksum{Algorithm: alg, Value: raw}
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

func objectToEntry(obj types.Object, key string) objmodel.ObjectEntry {
	entry := objmodel.ObjectEntry{
		Key:          key,
		Size:         uint64(aws.ToInt64(obj.Size)),
		LastModified: aws.ToTime(obj.LastModified),
		ETag:         trimQuotes(aws.ToString(obj.ETag)),
		StorageClass: objmodel.StorageClass(obj.StorageClass),
	}
	return entry
}

func versionToEntry(v types.ObjectVersion, key string) objmodel.ObjectEntry {
	return objmodel.ObjectEntry{
		Key:          key,
		VersionID:    aws.ToString(v.VersionId),
		Size:         uint64(aws.ToInt64(v.Size)),
		LastModified: aws.ToTime(v.LastModified),
		ETag:         trimQuotes(aws.ToString(v.ETag)),
		StorageClass: objmodel.StorageClass(v.StorageClass),
	}
}

func deleteMarkerToEntry(dm types.DeleteMarkerEntry, key string) objmodel.ObjectEntry {
	return objmodel.ObjectEntry{
		Key:            key,
		VersionID:      aws.ToString(dm.VersionId),
		IsDeleteMarker: true,
		LastModified:   aws.ToTime(dm.LastModified),
	}
}

func headOutputToEntry(out *s3.HeadObjectOutput, key string) objmodel.ObjectEntry {
	entry := objmodel.ObjectEntry{
		Key:                     key,
		Size:                    uint64(aws.ToInt64(out.ContentLength)),
		LastModified:            aws.ToTime(out.LastModified),
		ETag:                    trimQuotes(aws.ToString(out.ETag)),
		StorageClass:            objmodel.StorageClass(out.StorageClass),
		ContentType:             aws.ToString(out.ContentType),
		ContentEncoding:         aws.ToString(out.ContentEncoding),
		ContentLanguage:         aws.ToString(out.ContentLanguage),
		CacheControl:            aws.ToString(out.CacheControl),
		WebsiteRedirectLocation: aws.ToString(out.WebsiteRedirectLocation),
		UserMetadata:            out.Metadata,
		VersionID:               aws.ToString(out.VersionId),
	}
	applySSEFromHead(&entry, out.ServerSideEncryption, out.SSEKMSKeyId)
	entry.AdditionalChecksum = headChecksum(out)
	return entry
}

func getOutputToEntry(out *s3.GetObjectOutput, key string) objmodel.ObjectEntry {
	entry := objmodel.ObjectEntry{
		Key:             key,
		Size:            uint64(aws.ToInt64(out.ContentLength)),
		LastModified:    aws.ToTime(out.LastModified),
		ETag:            trimQuotes(aws.ToString(out.ETag)),
		StorageClass:    objmodel.StorageClass(out.StorageClass),
		ContentType:     aws.ToString(out.ContentType),
		ContentEncoding: aws.ToString(out.ContentEncoding),
		UserMetadata:    out.Metadata,
		VersionID:        aws.ToString(out.VersionId),
	}
	applySSEFromHead(&entry, out.ServerSideEncryption, out.SSEKMSKeyId)
	return entry
}

func applySSEFromHead(entry *objmodel.ObjectEntry, sse types.ServerSideEncryption, kmsKeyID *string) {
	switch sse {
	case types.ServerSideEncryptionAes256:
		entry.SSEType = objmodel.SSEAES256
	case types.ServerSideEncryptionAwsKms:
		entry.SSEType = objmodel.SSEKMS
		entry.SSEKMSKeyID = aws.ToString(kmsKeyID)
	}
}

func headChecksum(out *s3.HeadObjectOutput) objmodel.AdditionalChecksum {
	for alg, b64 := range map[objmodel.ChecksumAlgorithm]*string{
		objmodel.ChecksumCRC32:     out.ChecksumCRC32,
		objmodel.ChecksumCRC32C:    out.ChecksumCRC32C,
		objmodel.ChecksumCRC64NVME: out.ChecksumCRC64NVME,
		objmodel.ChecksumSHA1:      out.ChecksumSHA1,
		objmodel.ChecksumSHA256:    out.ChecksumSHA256,
	} {
		if b64 == nil || *b64 == "" {
			continue
		}
		digest, partCount, err := decodeChecksumHeader(*b64)
		if err != nil {
			continue
		}
		return objmodel.AdditionalChecksum{Algorithm: alg, Value: digest, PartCount: partCount}
	}
	return objmodel.AdditionalChecksum{}
}

// decodeChecksumHeader decodes one of HeadObject's Checksum* header values.
// For a multipart object it carries a "-N" part-count suffix after the
// base64 digest, the same composite form as a multipart etag (GLOSSARY,
// "Additional checksum").
func decodeChecksumHeader(s string) (digest []byte, partCount int, err error) {
	b64 := s
	if i := strings.LastIndexByte(s, '-'); i >= 0 {
		if n, convErr := strconv.Atoi(s[i+1:]); convErr == nil && n > 0 {
			b64 = s[:i]
			partCount = n
		}
	}
	digest, err = decodeBase64(b64)
	return digest, partCount, err
}
