package checksum

import (
	"bytes"
	"encoding/hex"
	"io"
	"testing"

	"github.com/yuya-takeyama/s3sync/internal/objmodel"
)

func TestMultipartETagAndCompositeChecksumAgreeOnPartCount(t *testing.T) {
	const chunkSize = 5 * 1024 * 1024
	data := make([]byte, 10*1024*1024+1) // exercises a non-uniform last part
	for i := range data {
		data[i] = byte(i % 251)
	}

	var md5Digests [][]byte
	var sha256Digests [][]byte
	for off := 0; off < len(data); off += chunkSize {
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		part := data[off:end]

		th := NewTeeHasher(bytes.NewReader(part), objmodel.ChecksumSHA256)
		if _, err := io.Copy(io.Discard, th); err != nil {
			t.Fatal(err)
		}
		sum, err := th.Sum()
		if err != nil {
			t.Fatal(err)
		}
		sha256Digests = append(sha256Digests, sum)

		etag, err := SingleMD5ETag(bytes.NewReader(part))
		if err != nil {
			t.Fatal(err)
		}
		raw, err := hex.DecodeString(etag)
		if err != nil {
			t.Fatal(err)
		}
		md5Digests = append(md5Digests, raw)
	}

	if len(sha256Digests) != 3 {
		t.Fatalf("10MiB+1 byte at 5MiB chunks must produce 3 parts, got %d", len(sha256Digests))
	}

	composite := EncodeComposite(objmodel.ChecksumSHA256, sha256Digests)
	if composite[len(composite)-2:] != "-3" {
		t.Fatalf("expected -3 suffix, got %s", composite)
	}

	etag := MultipartETag(md5Digests)
	if etag[len(etag)-2:] != "-3" {
		t.Fatalf("expected -3 etag suffix, got %s", etag)
	}
}

func TestEncodeCompositeFormat(t *testing.T) {
	alg := objmodel.ChecksumSHA256
	h1 := NewHash(alg)
	h1.Write([]byte("part-one"))
	d1 := h1.Sum(nil)

	h2 := NewHash(alg)
	h2.Write([]byte("part-two"))
	d2 := h2.Sum(nil)

	got := EncodeComposite(alg, [][]byte{d1, d2})
	if got[len(got)-2:] != "-2" {
		t.Fatalf("expected -2 suffix, got %s", got)
	}
}

func TestMultipartETagSuffix(t *testing.T) {
	d1 := []byte("0123456789abcdef")
	d2 := []byte("fedcba9876543210")
	etag := MultipartETag([][]byte{d1, d2})
	if etag[len(etag)-2:] != "-2" {
		t.Fatalf("expected -2 suffix, got %s", etag)
	}
}

func TestParseMultipartETag(t *testing.T) {
	hex, n, ok := ParseMultipartETag(`"fd863860e4b73868097377d43bd65a58-2"`)
	if !ok {
		t.Fatal("expected ok")
	}
	if n != 2 {
		t.Fatalf("expected 2 parts, got %d", n)
	}
	if hex != "fd863860e4b73868097377d43bd65a58" {
		t.Fatalf("unexpected hex: %s", hex)
	}

	_, _, ok = ParseMultipartETag(`"d41d8cd98f00b204e9800998ecf8427e"`)
	if ok {
		t.Fatal("plain MD5 etag must not parse as multipart")
	}
}

func TestIsComparableETag(t *testing.T) {
	if !IsComparableETag("abc-2", "def-2") {
		t.Fatal("same part count should be comparable")
	}
	if IsComparableETag("abc-2", "def-3") {
		t.Fatal("different part counts must not be comparable")
	}
	if IsComparableETag("abc-2", "plainmd5") {
		t.Fatal("mixed multipart/single must not be comparable")
	}
	if !IsComparableETag("plain1", "plain2") {
		t.Fatal("two plain etags should be comparable")
	}
}

func TestSingleMD5ETag(t *testing.T) {
	etag, err := SingleMD5ETag(bytes.NewReader([]byte("")))
	if err != nil {
		t.Fatal(err)
	}
	if etag != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Fatalf("unexpected empty-body md5: %s", etag)
	}
}

func TestCRC64NVMEProducesEightByteDigest(t *testing.T) {
	h := NewHash(objmodel.ChecksumCRC64NVME)
	h.Write([]byte("hello world"))
	if len(h.Sum(nil)) != 8 {
		t.Fatalf("crc64nvme digest must be 8 bytes, got %d", len(h.Sum(nil)))
	}
}
