package transfer

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yuya-takeyama/s3sync/internal/chunkplanner"
	"github.com/yuya-takeyama/s3sync/internal/endpoint"
	"github.com/yuya-takeyama/s3sync/internal/errs"
	"github.com/yuya-takeyama/s3sync/internal/objmodel"
)

// memEndpoint is a minimal in-memory endpoint.Endpoint for exercising the
// Transferrer without touching S3 or the filesystem.
type memEndpoint struct {
	mu       sync.Mutex
	objects  map[string][]byte
	tags     map[string][]objmodel.Tag
	uploads  map[string]map[int32][]byte
	nextID   int
	noTagging bool
}

func newMemEndpoint() *memEndpoint {
	return &memEndpoint{
		objects: map[string][]byte{},
		tags:    map[string][]objmodel.Tag{},
		uploads: map[string]map[int32][]byte{},
	}
}

func (m *memEndpoint) Capabilities() endpoint.Capabilities { return endpoint.Capabilities{Tagging: !m.noTagging} }

func (m *memEndpoint) List(ctx context.Context) (<-chan endpoint.ListedEntry, error) { return nil, nil }

func (m *memEndpoint) Head(ctx context.Context, key, versionID string) (objmodel.ObjectEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return objmodel.ObjectEntry{}, errs.New(errs.NotFound, key, "not found")
	}
	return objmodel.ObjectEntry{Key: key, Size: uint64(len(data))}, nil
}

func (m *memEndpoint) GetObject(ctx context.Context, in endpoint.GetObjectInput) (io.ReadCloser, objmodel.ObjectEntry, error) {
	m.mu.Lock()
	data, ok := m.objects[in.Key]
	m.mu.Unlock()
	if !ok {
		return nil, objmodel.ObjectEntry{}, errs.New(errs.NotFound, in.Key, "not found")
	}
	if in.RangeEnd > 0 {
		end := in.RangeEnd
		if end > int64(len(data))-1 {
			end = int64(len(data)) - 1
		}
		data = data[in.RangeStart : end+1]
	}
	return io.NopCloser(bytes.NewReader(data)), objmodel.ObjectEntry{Key: in.Key, Size: uint64(len(data))}, nil
}

func (m *memEndpoint) PutObject(ctx context.Context, in endpoint.PutObjectInput) (endpoint.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return endpoint.PutObjectOutput{}, err
	}
	m.mu.Lock()
	m.objects[in.Entry.Key] = data
	m.mu.Unlock()
	sum := md5.Sum(data)
	return endpoint.PutObjectOutput{ETag: fmt.Sprintf("%x", sum)}, nil
}

func (m *memEndpoint) CreateMultipartUpload(ctx context.Context, in endpoint.CreateMultipartInput) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("upload-%d", m.nextID)
	m.uploads[id] = map[int32][]byte{}
	return id, nil
}

func (m *memEndpoint) UploadPart(ctx context.Context, in endpoint.UploadPartInput) (endpoint.UploadPartOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return endpoint.UploadPartOutput{}, err
	}
	m.mu.Lock()
	m.uploads[in.UploadID][in.PartNumber] = data
	m.mu.Unlock()
	sum := md5.Sum(data)
	return endpoint.UploadPartOutput{ETag: fmt.Sprintf("%x", sum)}, nil
}

func (m *memEndpoint) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []endpoint.CompletedPart) (endpoint.PutObjectOutput, error) {
	m.mu.Lock()
	partData := m.uploads[uploadID]
	var buf bytes.Buffer
	var partMD5s [][]byte
	for i := 1; i <= len(parts); i++ {
		buf.Write(partData[int32(i)])
		sum := md5.Sum(partData[int32(i)])
		partMD5s = append(partMD5s, sum[:])
	}
	m.objects[key] = buf.Bytes()
	delete(m.uploads, uploadID)
	m.mu.Unlock()

	concatMD5 := md5.New()
	for _, d := range partMD5s {
		concatMD5.Write(d)
	}
	return endpoint.PutObjectOutput{ETag: fmt.Sprintf("%x-%d", concatMD5.Sum(nil), len(parts))}, nil
}

func (m *memEndpoint) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	m.mu.Lock()
	delete(m.uploads, uploadID)
	m.mu.Unlock()
	return nil
}

func (m *memEndpoint) DeleteObject(ctx context.Context, key, versionID string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *memEndpoint) GetTagging(ctx context.Context, key, versionID string) ([]objmodel.Tag, error) {
	if m.noTagging {
		return nil, errs.New(errs.CapabilityUnsupported, key, "no tagging")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tags[key], nil
}

func (m *memEndpoint) PutTagging(ctx context.Context, key, versionID string, tags []objmodel.Tag) error {
	if m.noTagging {
		return errs.New(errs.CapabilityUnsupported, key, "no tagging")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[key] = tags
	return nil
}

func (m *memEndpoint) DeleteTagging(ctx context.Context, key, versionID string) error { return nil }

func TestTransferSingleVerifiesETag(t *testing.T) {
	src := newMemEndpoint()
	src.objects["a.txt"] = []byte("hello world")
	src.tags["a.txt"] = []objmodel.Tag{{Key: "env", Value: "prod"}}
	tgt := newMemEndpoint()

	tr := New(src, tgt, Config{}, nil)
	outcome := tr.Transfer(context.Background(), objmodel.TransferPlan{
		Entry:  objmodel.ObjectEntry{Key: "a.txt", Size: 11},
		Action: objmodel.ActionTransferSingle,
	})
	if outcome.Error != nil {
		t.Fatal(outcome.Error)
	}
	if !outcome.ETagVerified {
		t.Fatal("expected etag to verify")
	}
	if string(tgt.objects["a.txt"]) != "hello world" {
		t.Fatalf("unexpected target content %q", tgt.objects["a.txt"])
	}
	if len(tgt.tags["a.txt"]) != 1 {
		t.Fatal("expected tags to be copied")
	}
}

func TestTransferMultipartAssemblesAllParts(t *testing.T) {
	src := newMemEndpoint()
	body := bytes.Repeat([]byte("x"), 10*1024*1024+1)
	src.objects["big.bin"] = body
	tgt := newMemEndpoint()

	tr := New(src, tgt, Config{PartConcurrency: 2}, nil)
	layout := chunkplanner.Plan(uint64(len(body)), chunkplanner.Config{MultipartThreshold: 1, MultipartChunkSize: 5 * 1024 * 1024}, "")

	outcome := tr.Transfer(context.Background(), objmodel.TransferPlan{
		Entry:     objmodel.ObjectEntry{Key: "big.bin", Size: uint64(len(body))},
		Action:    objmodel.ActionTransferMultipart,
		ChunkSize: layout.ChunkSize,
		PartCount: layout.PartCount,
	})
	require.NoError(t, outcome.Error)
	require.True(t, bytes.Equal(tgt.objects["big.bin"], body), "assembled object does not match source")
	require.True(t, outcome.ETagVerified, "expected multipart etag to verify")
}

func TestTransferToleratesUnsupportedTagging(t *testing.T) {
	src := newMemEndpoint()
	src.objects["a.txt"] = []byte("data")
	src.tags["a.txt"] = []objmodel.Tag{{Key: "env", Value: "prod"}}
	tgt := newMemEndpoint()
	tgt.noTagging = true

	tr := New(src, tgt, Config{}, nil)
	outcome := tr.Transfer(context.Background(), objmodel.TransferPlan{
		Entry:  objmodel.ObjectEntry{Key: "a.txt", Size: 4},
		Action: objmodel.ActionTransferSingle,
	})
	if outcome.Error != nil {
		t.Fatalf("unsupported tagging must not fail the transfer: %v", outcome.Error)
	}
}
