package s3endpoint

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yuya-takeyama/s3sync/internal/objmodel"
)

func TestTrimQuotesStripsSurroundingQuotes(t *testing.T) {
	if got := trimQuotes(`"abc-2"`); got != "abc-2" {
		t.Fatalf("got %q", got)
	}
	if got := trimQuotes("abc"); got != "abc" {
		t.Fatalf("got %q", got)
	}
}

func TestToSDKChecksumAlgorithmRoundTrip(t *testing.T) {
	for _, alg := range []objmodel.ChecksumAlgorithm{
		objmodel.ChecksumCRC32, objmodel.ChecksumCRC32C, objmodel.ChecksumCRC64NVME,
		objmodel.ChecksumSHA1, objmodel.ChecksumSHA256,
	} {
		if _, ok := toSDKChecksumAlgorithm(alg); !ok {
			t.Fatalf("expected %v to map to an SDK checksum algorithm", alg)
		}
	}
	if _, ok := toSDKChecksumAlgorithm(objmodel.ChecksumNone); ok {
		t.Fatal("expected ChecksumNone to not map to an SDK algorithm")
	}
}

func TestDecodeBase64RoundTrips(t *testing.T) {
	raw, err := decodeBase64("AAAAAA==")
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 4 {
		t.Fatalf("expected 4 decoded bytes, got %d", len(raw))
	}
}

func TestDecodeChecksumHeaderParsesMultipartSuffix(t *testing.T) {
	digest, partCount, err := decodeChecksumHeader("AAAAAA==-3")
	if err != nil {
		t.Fatal(err)
	}
	if partCount != 3 {
		t.Fatalf("expected part count 3, got %d", partCount)
	}
	if len(digest) != 4 {
		t.Fatalf("expected 4 decoded bytes, got %d", len(digest))
	}
}

func TestDecodeChecksumHeaderHandlesSinglePart(t *testing.T) {
	digest, partCount, err := decodeChecksumHeader("AAAAAA==")
	if err != nil {
		t.Fatal(err)
	}
	if partCount != 0 {
		t.Fatalf("expected no part count for a single-part checksum, got %d", partCount)
	}
	if len(digest) != 4 {
		t.Fatalf("expected 4 decoded bytes, got %d", len(digest))
	}
}

func TestHeadChecksumParsesMultipartValue(t *testing.T) {
	out := &s3.HeadObjectOutput{ChecksumSHA256: aws.String("AAAAAA==-2")}
	cs := headChecksum(out)
	if cs.Algorithm != objmodel.ChecksumSHA256 {
		t.Fatalf("expected SHA256, got %v", cs.Algorithm)
	}
	if cs.PartCount != 2 {
		t.Fatalf("expected part count 2, got %d", cs.PartCount)
	}
	if len(cs.Value) != 4 {
		t.Fatalf("expected 4 decoded bytes, got %d", len(cs.Value))
	}
}

func TestCapabilitiesRejectsVersioningAndSSECForDirectoryBuckets(t *testing.T) {
	regular := (&Endpoint{cfg: Config{Bucket: "my-bucket"}}).Capabilities()
	if !regular.Versioning || !regular.SSEC {
		t.Fatalf("expected a regular bucket to support versioning and SSE-C, got %+v", regular)
	}

	dir := (&Endpoint{cfg: Config{Bucket: "my-bucket--use1-az4--x-s3"}}).Capabilities()
	if dir.Versioning || dir.SSEC {
		t.Fatalf("expected a directory bucket to reject versioning and SSE-C, got %+v", dir)
	}
}
