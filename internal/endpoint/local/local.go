// Package local implements endpoint.Endpoint against a local directory
// tree, generalizing the teacher's internal/walker.Walker (which only
// listed files for upload) into the full read/write/delete surface
// spec.md §4 requires for a Local source or target.
package local

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/yuya-takeyama/s3sync/internal/checksum"
	"github.com/yuya-takeyama/s3sync/internal/endpoint"
	"github.com/yuya-takeyama/s3sync/internal/errs"
	"github.com/yuya-takeyama/s3sync/internal/objmodel"
)

// Config addresses one local directory tree.
type Config struct {
	Root     string
	Excludes []string // doublestar patterns, matching the teacher's --exclude
}

// Endpoint implements endpoint.Endpoint against a local filesystem.
type Endpoint struct {
	root     string
	excludes []string

	// multipartDir holds in-progress part files, keyed by upload ID, until
	// CompleteMultipartUpload concatenates them into place. Local has no
	// native multipart primitive; this reproduces the same Init/Upload/
	// Complete protocol the S3 endpoint exposes so the Transferrer's state
	// machine is endpoint-agnostic.
	multipartDir string
}

// New validates root and returns a local Endpoint.
func New(cfg Config) (*Endpoint, error) {
	absRoot, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, errs.Wrap(errs.Config, cfg.Root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, errs.Wrap(errs.Config, cfg.Root, err)
	}
	if !info.IsDir() {
		return nil, errs.New(errs.Config, cfg.Root, "root is not a directory: %s", absRoot)
	}
	return &Endpoint{
		root:         absRoot,
		excludes:     cfg.Excludes,
		multipartDir: filepath.Join(absRoot, ".s3sync-multipart"),
	}, nil
}

func (e *Endpoint) Capabilities() endpoint.Capabilities {
	return endpoint.Capabilities{
		Versioning:           false,
		ServerSideEncryption: false,
		SSEC:                 false,
		Tagging:              false,
		AdditionalChecksum:   false,
		StorageClass:         false,
	}
}

// resolve applies the path-traversal guard of spec.md §9 Open Question #3:
// it joins key onto root using the OS-native separator (not a naive POSIX
// "/" join, so the guard also holds on Windows) and rejects any result that
// escapes root, however the key tries to climb out (".." segments,
// absolute paths smuggled in as a key, drive-letter tricks on Windows).
func (e *Endpoint) resolve(key string) (string, error) {
	cleanKey := filepath.FromSlash(key)
	joined := filepath.Join(e.root, cleanKey)
	rel, err := filepath.Rel(e.root, joined)
	if err != nil {
		return "", errs.New(errs.PermissionDenied, key, "key escapes root: %v", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errs.New(errs.PermissionDenied, key, "key escapes root: %s", key)
	}
	return joined, nil
}

// List streams stat info only; it leaves ETag unset rather than hashing
// every file in the tree up front (see Head, which computes it lazily for
// the one file actually being compared).
func (e *Endpoint) List(ctx context.Context) (<-chan endpoint.ListedEntry, error) {
	out := make(chan endpoint.ListedEntry, 256)
	go func() {
		defer close(out)
		err := filepath.WalkDir(e.root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if path == e.multipartDir {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(path, e.multipartDir+string(filepath.Separator)) {
				return nil
			}

			relPath, err := filepath.Rel(e.root, path)
			if err != nil {
				return err
			}
			key := filepath.ToSlash(relPath)
			if e.isExcluded(key) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return err
			}

			entry := objmodel.ObjectEntry{
				Key:          key,
				Size:         uint64(info.Size()),
				LastModified: info.ModTime().UTC(),
			}
			select {
			case out <- endpoint.ListedEntry{Entry: entry}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if err != nil && err != context.Canceled {
			select {
			case out <- endpoint.ListedEntry{Err: errs.Wrap(errs.Transport, e.root, err)}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

func (e *Endpoint) isExcluded(key string) bool {
	for _, pattern := range e.excludes {
		if strings.HasSuffix(pattern, "/") {
			dirPattern := strings.TrimSuffix(pattern, "/")
			parts := strings.Split(key, "/")
			for i := 1; i <= len(parts); i++ {
				if matched, _ := doublestar.Match(dirPattern, strings.Join(parts[:i], "/")); matched {
					return true
				}
			}
			continue
		}
		if matched, _ := doublestar.Match(pattern, key); matched {
			return true
		}
	}
	return false
}

// Head stats key and, unlike List, also computes its MD5 so the result can
// stand in for an S3 plain-part etag (checksum.IsComparableETag/Decide
// compare a local file against an S3 object by that value). List stays
// cheap and leaves ETag unset; the scheduler calls Head on the target for
// every listed entry, and on the source only when the target exists with
// the same size.
func (e *Endpoint) Head(ctx context.Context, key, versionID string) (objmodel.ObjectEntry, error) {
	path, err := e.resolve(key)
	if err != nil {
		return objmodel.ObjectEntry{}, err
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return objmodel.ObjectEntry{}, errs.New(errs.NotFound, key, "object not found")
	}
	if err != nil {
		return objmodel.ObjectEntry{}, errs.Wrap(errs.Transport, key, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return objmodel.ObjectEntry{}, errs.Wrap(errs.Transport, key, err)
	}
	defer f.Close()
	etag, err := checksum.SingleMD5ETag(f)
	if err != nil {
		return objmodel.ObjectEntry{}, errs.Wrap(errs.Transport, key, err)
	}

	return objmodel.ObjectEntry{
		Key:          key,
		Size:         uint64(info.Size()),
		LastModified: info.ModTime().UTC(),
		ETag:         etag,
	}, nil
}

func (e *Endpoint) GetObject(ctx context.Context, in endpoint.GetObjectInput) (io.ReadCloser, objmodel.ObjectEntry, error) {
	path, err := e.resolve(in.Key)
	if err != nil {
		return nil, objmodel.ObjectEntry{}, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, objmodel.ObjectEntry{}, errs.New(errs.NotFound, in.Key, "object not found")
	}
	if err != nil {
		return nil, objmodel.ObjectEntry{}, errs.Wrap(errs.Transport, in.Key, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, objmodel.ObjectEntry{}, errs.Wrap(errs.Transport, in.Key, err)
	}

	entry := objmodel.ObjectEntry{Key: in.Key, Size: uint64(info.Size()), LastModified: info.ModTime().UTC()}

	if in.RangeEnd > 0 {
		if _, err := f.Seek(in.RangeStart, io.SeekStart); err != nil {
			f.Close()
			return nil, objmodel.ObjectEntry{}, errs.Wrap(errs.Transport, in.Key, err)
		}
		length := in.RangeEnd - in.RangeStart + 1
		return &rangeReadCloser{r: io.NewSectionReader(f, in.RangeStart, length), c: f}, entry, nil
	}
	return f, entry, nil
}

type rangeReadCloser struct {
	r *io.SectionReader
	c io.Closer
}

func (r *rangeReadCloser) Read(p []byte) (int, error) { return r.r.Read(p) }
func (r *rangeReadCloser) Close() error                { return r.c.Close() }

func (e *Endpoint) PutObject(ctx context.Context, in endpoint.PutObjectInput) (endpoint.PutObjectOutput, error) {
	path, err := e.resolve(in.Entry.Key)
	if err != nil {
		return endpoint.PutObjectOutput{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return endpoint.PutObjectOutput{}, errs.Wrap(errs.Transport, in.Entry.Key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".s3sync-tmp-*")
	if err != nil {
		return endpoint.PutObjectOutput{}, errs.Wrap(errs.Transport, in.Entry.Key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in.Body); err != nil {
		tmp.Close()
		return endpoint.PutObjectOutput{}, errs.Wrap(errs.Transport, in.Entry.Key, err)
	}
	if err := tmp.Close(); err != nil {
		return endpoint.PutObjectOutput{}, errs.Wrap(errs.Transport, in.Entry.Key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return endpoint.PutObjectOutput{}, errs.Wrap(errs.Transport, in.Entry.Key, err)
	}
	if !in.Entry.LastModified.IsZero() {
		_ = os.Chtimes(path, in.Entry.LastModified, in.Entry.LastModified)
	}
	return endpoint.PutObjectOutput{}, nil
}

func (e *Endpoint) CreateMultipartUpload(ctx context.Context, in endpoint.CreateMultipartInput) (string, error) {
	uploadID := fmt.Sprintf("local-%d-%s", time.Now().UnixNano(), strings.ReplaceAll(in.Entry.Key, "/", "_"))
	dir := filepath.Join(e.multipartDir, uploadID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errs.Wrap(errs.Transport, in.Entry.Key, err)
	}
	return uploadID, nil
}

func (e *Endpoint) UploadPart(ctx context.Context, in endpoint.UploadPartInput) (endpoint.UploadPartOutput, error) {
	dir := filepath.Join(e.multipartDir, in.UploadID)
	partPath := filepath.Join(dir, fmt.Sprintf("part-%06d", in.PartNumber))
	f, err := os.Create(partPath)
	if err != nil {
		return endpoint.UploadPartOutput{}, errs.Wrap(errs.Transport, in.Key, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, in.Body); err != nil {
		return endpoint.UploadPartOutput{}, errs.Wrap(errs.Transport, in.Key, err)
	}
	return endpoint.UploadPartOutput{}, nil
}

func (e *Endpoint) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []endpoint.CompletedPart) (endpoint.PutObjectOutput, error) {
	path, err := e.resolve(key)
	if err != nil {
		return endpoint.PutObjectOutput{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return endpoint.PutObjectOutput{}, errs.Wrap(errs.Transport, key, err)
	}

	dir := filepath.Join(e.multipartDir, uploadID)
	defer os.RemoveAll(dir)

	sorted := append([]endpoint.CompletedPart(nil), parts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PartNumber < sorted[j].PartNumber })

	tmp, err := os.CreateTemp(filepath.Dir(path), ".s3sync-tmp-*")
	if err != nil {
		return endpoint.PutObjectOutput{}, errs.Wrap(errs.Transport, key, err)
	}
	defer os.Remove(tmp.Name())

	for _, p := range sorted {
		partPath := filepath.Join(dir, fmt.Sprintf("part-%06d", p.PartNumber))
		pf, err := os.Open(partPath)
		if err != nil {
			tmp.Close()
			return endpoint.PutObjectOutput{}, errs.Wrap(errs.Transport, key, err)
		}
		_, err = io.Copy(tmp, pf)
		pf.Close()
		if err != nil {
			tmp.Close()
			return endpoint.PutObjectOutput{}, errs.Wrap(errs.Transport, key, err)
		}
	}
	if err := tmp.Close(); err != nil {
		return endpoint.PutObjectOutput{}, errs.Wrap(errs.Transport, key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return endpoint.PutObjectOutput{}, errs.Wrap(errs.Transport, key, err)
	}
	return endpoint.PutObjectOutput{}, nil
}

func (e *Endpoint) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	dir := filepath.Join(e.multipartDir, uploadID)
	if err := os.RemoveAll(dir); err != nil {
		return errs.Wrap(errs.Transport, key, err)
	}
	return nil
}

func (e *Endpoint) DeleteObject(ctx context.Context, key, versionID string) error {
	path, err := e.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errs.Wrap(errs.Transport, key, err)
	}
	return nil
}

// GetTagging/PutTagging/DeleteTagging: a local directory tree has no
// tagging primitive, so these report CapabilityUnsupported rather than
// silently discarding the caller's intent (spec.md §7).
func (e *Endpoint) GetTagging(ctx context.Context, key, versionID string) ([]objmodel.Tag, error) {
	return nil, errs.New(errs.CapabilityUnsupported, key, "local endpoint does not support tagging")
}

func (e *Endpoint) PutTagging(ctx context.Context, key, versionID string, tags []objmodel.Tag) error {
	return errs.New(errs.CapabilityUnsupported, key, "local endpoint does not support tagging")
}

func (e *Endpoint) DeleteTagging(ctx context.Context, key, versionID string) error {
	return errs.New(errs.CapabilityUnsupported, key, "local endpoint does not support tagging")
}
