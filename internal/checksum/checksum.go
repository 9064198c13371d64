// Package checksum computes and verifies S3's "additional checksum" and
// etag formats, including the composite "-N" form used by multipart
// objects (spec.md §3, §6, GLOSSARY).
//
// Streaming interface follows the shape of the teacher's
// internal/checksum.TeeReaderWithChecksum: a Hasher wraps an io.Reader and
// exposes the running digest once the wrapped read reaches EOF.
package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"hash"
	"hash/crc32"
	"hash/crc64"
	"io"

	"github.com/yuya-takeyama/s3sync/internal/objmodel"
)

// crc64NVMETable is the CRC-64/NVME polynomial S3 uses for the CRC64NVME
// additional checksum, matching the retrieved nguyengg/xy3 uploader's
// crc64.MakeTable(0xAD93D23594C93659).
var crc64NVMETable = crc64.MakeTable(0xAD93D23594C93659)

// NewHash returns a fresh hash.Hash for the given algorithm, or nil for
// ChecksumNone.
func NewHash(alg objmodel.ChecksumAlgorithm) hash.Hash {
	switch alg {
	case objmodel.ChecksumCRC32:
		return crc32.NewIEEE()
	case objmodel.ChecksumCRC32C:
		return crc32.New(crc32.MakeTable(crc32.Castagnoli))
	case objmodel.ChecksumCRC64NVME:
		return crc64.New(crc64NVMETable)
	case objmodel.ChecksumSHA1:
		return sha1.New()
	case objmodel.ChecksumSHA256:
		return sha256.New()
	default:
		return nil
	}
}

// TeeHasher wraps an io.Reader, feeding every byte read into a hash.Hash,
// and exposes the digest once the wrapped reader has been fully consumed.
type TeeHasher struct {
	reader io.Reader
	h      hash.Hash
	done   bool
}

// NewTeeHasher creates a TeeHasher for the given algorithm. alg must not be
// ChecksumNone.
func NewTeeHasher(r io.Reader, alg objmodel.ChecksumAlgorithm) *TeeHasher {
	return &TeeHasher{reader: r, h: NewHash(alg)}
}

func (t *TeeHasher) Read(p []byte) (int, error) {
	n, err := t.reader.Read(p)
	if n > 0 {
		t.h.Write(p[:n])
	}
	if err == io.EOF {
		t.done = true
	}
	return n, err
}

// Sum returns the raw digest bytes. Only valid once Read has returned EOF.
func (t *TeeHasher) Sum() ([]byte, error) {
	if !t.done {
		return nil, fmt.Errorf("checksum: read not complete")
	}
	return t.h.Sum(nil), nil
}

// EncodeSingle returns the S3 wire-format value for a single-part
// additional checksum: base64(digest).
func EncodeSingle(digest []byte) string {
	return base64.StdEncoding.EncodeToString(digest)
}

// EncodeComposite returns the S3 wire-format value for a multipart
// additional checksum: base64(hash(concat(partDigests)))-N, where hash is
// the same algorithm used for the parts (GLOSSARY: "Additional checksum").
func EncodeComposite(alg objmodel.ChecksumAlgorithm, partDigests [][]byte) string {
	h := NewHash(alg)
	for _, d := range partDigests {
		h.Write(d)
	}
	return fmt.Sprintf("%s-%d", base64.StdEncoding.EncodeToString(h.Sum(nil)), len(partDigests))
}

// ComputeWholeFile computes base64(hash(whole stream)) for alg, consuming r
// fully.
func ComputeWholeFile(r io.Reader, alg objmodel.ChecksumAlgorithm) (string, error) {
	h := NewHash(alg)
	if h == nil {
		return "", fmt.Errorf("checksum: unknown algorithm %q", alg)
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// SingleMD5ETag computes the S3 single-part PUT etag, which is the
// lower-case hex MD5 of the body (no quotes).
func SingleMD5ETag(body io.Reader) (string, error) {
	h := md5.New()
	if _, err := io.Copy(h, body); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// MultipartETag computes the S3 multipart etag from the raw MD5 digest of
// each part: md5(concat(md5(part_i)))-N, lower-case hex (spec.md §3, §6).
func MultipartETag(partMD5s [][]byte) string {
	h := md5.New()
	for _, d := range partMD5s {
		h.Write(d)
	}
	return fmt.Sprintf("%x-%d", h.Sum(nil), len(partMD5s))
}

// ParseMultipartETag splits a "<hex>-<n>" etag into its hex digest and part
// count. ok is false if etag is not in that form (i.e. it is a plain
// single-part MD5 etag or an opaque non-S3 value).
func ParseMultipartETag(etag string) (hexDigest string, partCount int, ok bool) {
	// Strip surrounding quotes some SDKs leave on raw ETag headers.
	etag = trimQuotes(etag)
	i := -1
	for idx := len(etag) - 1; idx >= 0; idx-- {
		if etag[idx] == '-' {
			i = idx
			break
		}
	}
	if i < 0 {
		return "", 0, false
	}
	hexDigest = etag[:i]
	suffix := etag[i+1:]
	n := 0
	for _, c := range suffix {
		if c < '0' || c > '9' {
			return "", 0, false
		}
		n = n*10 + int(c-'0')
	}
	if n <= 0 {
		return "", 0, false
	}
	return hexDigest, n, true
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// IsComparableETag reports whether two etags can be meaningfully compared
// as content identity: both absent of the multipart "-N" form (plain MD5),
// or both multipart with the identical part layout (spec.md §3 invariant).
func IsComparableETag(a, b string) bool {
	_, an, aok := ParseMultipartETag(a)
	_, bn, bok := ParseMultipartETag(b)
	if aok != bok {
		return false
	}
	if aok && bok {
		return an == bn
	}
	return true
}
