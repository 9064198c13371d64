package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/yuya-takeyama/s3sync/internal/chunkplanner"
	"github.com/yuya-takeyama/s3sync/internal/cliendpoint"
	"github.com/yuya-takeyama/s3sync/internal/differ"
	"github.com/yuya-takeyama/s3sync/internal/endpoint/s3endpoint"
	"github.com/yuya-takeyama/s3sync/internal/errs"
	"github.com/yuya-takeyama/s3sync/internal/filter"
	"github.com/yuya-takeyama/s3sync/internal/objmodel"
	"github.com/yuya-takeyama/s3sync/internal/syncengine"
	"github.com/yuya-takeyama/s3sync/internal/transfer"
)

// defaultMultipartThreshold is applied when --multipart-threshold is left
// unset. chunkplanner.Config's zero value would otherwise route every
// transfer onto the multipart path (size < 0 never holds); spec.md §6
// names the flag but not a default, so this follows the same 8 MiB
// convention the AWS CLI's multipart threshold uses.
const defaultMultipartThreshold = 8 * 1024 * 1024

var (
	version = "dev"
	commit  = "none"
)

type cliFlags struct {
	workerSize         int
	multipartThreshold int64
	multipartChunksize int64
	autoChunksize      bool

	enableAdditionalChecksum bool
	checksumAlgorithm        string
	checkAdditionalChecksum  string

	sse              string
	sseKMSKeyID      string
	targetSSEC       string
	targetSSECKey    string
	targetSSECKeyMD5 string
	sourceSSEC       string
	sourceSSECKey    string
	sourceSSECKeyMD5 string

	storageClass string
	acl          string

	deleteFlag bool
	dryRun     bool

	enableVersioning bool

	rateLimitObjects   float64
	rateLimitBandwidth float64
	maxKeys            int32

	reportSyncStatus         bool
	reportMetadataSyncStatus bool
	reportTaggingSyncStatus  bool

	putLastModifiedMetadata bool
	disableTagging          bool
	syncLatestTagging       bool

	excludes    []string
	quiet       bool
	region      string
	profile     string
	endpointURL string
}

func main() {
	var f cliFlags

	rootCmd := &cobra.Command{
		Use:     "s3sync <source> <target>",
		Short:   "Sync objects between S3 and local directory trees",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], args[1], &f)
		},
	}

	rootCmd.Flags().IntVar(&f.workerSize, "worker-size", 16, "Worker pool width")
	rootCmd.Flags().Int64Var(&f.multipartThreshold, "multipart-threshold", defaultMultipartThreshold, "Size at/above which multipart is used")
	rootCmd.Flags().Int64Var(&f.multipartChunksize, "multipart-chunksize", 0, "Part size (defaults to chunkplanner's minimum)")
	rootCmd.Flags().BoolVar(&f.autoChunksize, "auto-chunksize", false, "Derive part size from source multipart etag")

	rootCmd.Flags().BoolVar(&f.enableAdditionalChecksum, "enable-additional-checksum", false, "Turn on additional-checksum computation & verification")
	rootCmd.Flags().StringVar(&f.checksumAlgorithm, "additional-checksum-algorithm", "", "CRC32|CRC32C|CRC64NVME|SHA1|SHA256")
	rootCmd.Flags().StringVar(&f.checkAdditionalChecksum, "check-additional-checksum", "", "Verify only; do not upload the checksum")

	rootCmd.Flags().StringVar(&f.sse, "sse", "", "AES256|aws:kms")
	rootCmd.Flags().StringVar(&f.sseKMSKeyID, "sse-kms-key-id", "", "KMS key id when --sse=aws:kms")
	rootCmd.Flags().StringVar(&f.targetSSEC, "target-sse-c", "", "SSE-C algorithm for the write path")
	rootCmd.Flags().StringVar(&f.targetSSECKey, "target-sse-c-key", "", "SSE-C base64 key for the write path")
	rootCmd.Flags().StringVar(&f.targetSSECKeyMD5, "target-sse-c-key-md5", "", "SSE-C base64 md5(key) for the write path")
	rootCmd.Flags().StringVar(&f.sourceSSEC, "source-sse-c", "", "SSE-C algorithm for the read path")
	rootCmd.Flags().StringVar(&f.sourceSSECKey, "source-sse-c-key", "", "SSE-C base64 key for the read path")
	rootCmd.Flags().StringVar(&f.sourceSSECKeyMD5, "source-sse-c-key-md5", "", "SSE-C base64 md5(key) for the read path")

	rootCmd.Flags().StringVar(&f.storageClass, "storage-class", "", "Target storage class")
	rootCmd.Flags().StringVar(&f.acl, "acl", "", "Canned ACL")

	rootCmd.Flags().BoolVar(&f.deleteFlag, "delete", false, "Two-pass delete of targets absent at source")
	rootCmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Plan only; never mutate the target")

	rootCmd.Flags().BoolVar(&f.enableVersioning, "enable-versioning", false, "Replicate full version history (both ends must support versioning)")

	rootCmd.Flags().Float64Var(&f.rateLimitObjects, "rate-limit-objects", 0, "Object transfers per second (0 disables)")
	rootCmd.Flags().Float64Var(&f.rateLimitBandwidth, "rate-limit-bandwidth", 0, "Bytes per second (0 disables)")
	rootCmd.Flags().Int32Var(&f.maxKeys, "max-keys", 1000, "List-page size")

	rootCmd.Flags().BoolVar(&f.reportSyncStatus, "report-sync-status", false, "No transfers; emit a SyncStatsReport")
	rootCmd.Flags().BoolVar(&f.reportMetadataSyncStatus, "report-metadata-sync-status", false, "Extend the report with a metadata category")
	rootCmd.Flags().BoolVar(&f.reportTaggingSyncStatus, "report-tagging-sync-status", false, "Extend the report with a tagging category")

	rootCmd.Flags().BoolVar(&f.putLastModifiedMetadata, "put-last-modified-metadata", false, "Store source mtime under s3sync_origin_last_modified")
	rootCmd.Flags().BoolVar(&f.disableTagging, "disable-tagging", false, "Do not copy the tag set")
	rootCmd.Flags().BoolVar(&f.syncLatestTagging, "sync-latest-tagging", false, "Re-sync the tag set even when object bodies match")

	rootCmd.Flags().StringSliceVar(&f.excludes, "exclude", nil, "Exclude patterns (doublestar globs, repeatable)")
	rootCmd.Flags().BoolVar(&f.quiet, "quiet", false, "Suppress non-error output")
	rootCmd.Flags().StringVar(&f.region, "region", "", "AWS region (uses default if not specified)")
	rootCmd.Flags().StringVar(&f.profile, "profile", "", "AWS profile to use")
	rootCmd.Flags().StringVar(&f.endpointURL, "endpoint-url", "", "Override the S3 endpoint (S3-compatible stores)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, sourceArg, targetArg string, f *cliFlags) error {
	checksumAlg, err := parseChecksumAlgorithm(f.checksumAlgorithm)
	if err != nil {
		return err
	}
	if f.checkAdditionalChecksum != "" {
		checksumAlg, err = parseChecksumAlgorithm(f.checkAdditionalChecksum)
		if err != nil {
			return err
		}
	}

	sse, err := parseSSEType(f.sse)
	if err != nil {
		return err
	}

	awsCfg, needsAWS, err := cliendpoint.LoadAWSConfig(ctx, f.profile, f.region, sourceArg, targetArg)
	if err != nil {
		return err
	}
	var s3Client *s3.Client
	if needsAWS {
		s3Client = cliendpoint.NewS3Client(awsCfg, f.endpointURL)
	}

	source, err := cliendpoint.Build(s3Client, sourceArg, cliendpoint.Options{
		Excludes:  f.excludes,
		MaxKeys:   f.maxKeys,
		Versioned: f.enableVersioning,
		ReadSSEC:  sseConfig(f.sourceSSEC, f.sourceSSECKey, f.sourceSSECKeyMD5),
	})
	if err != nil {
		return err
	}
	target, err := cliendpoint.Build(s3Client, targetArg, cliendpoint.Options{
		Excludes:  f.excludes,
		MaxKeys:   f.maxKeys,
		Versioned: f.enableVersioning,
		WriteSSEC: sseConfig(f.targetSSEC, f.targetSSECKey, f.targetSSECKeyMD5),
	})
	if err != nil {
		return err
	}

	if f.sourceSSEC != "" && !source.Capabilities().SSEC {
		return errs.New(errs.CapabilityUnsupported, "", "source endpoint does not support SSE-C")
	}
	if f.targetSSEC != "" && !target.Capabilities().SSEC {
		return errs.New(errs.CapabilityUnsupported, "", "target endpoint does not support SSE-C")
	}

	cfg := syncengine.Config{
		Source: source,
		Target: target,
		Filter: filter.Config{
			PrefixExcludes: f.excludes,
		},
		Differ: differ.Config{
			DryRun:            f.dryRun,
			ReportMode:        f.reportSyncStatus,
			ReportMetadata:    f.reportMetadataSyncStatus,
			ReportTagging:     f.reportTaggingSyncStatus,
			SyncLatestTagging: f.syncLatestTagging,
			DisableTagging:    f.disableTagging,
		},
		Chunk: chunkplanner.Config{
			MultipartThreshold: uint64(f.multipartThreshold),
			MultipartChunkSize: uint64(f.multipartChunksize),
			AutoChunkSize:      f.autoChunksize,
		},
		Transfer: transfer.Config{
			ChecksumAlgorithm:        checksumAlg,
			EnableAdditionalChecksum: f.enableAdditionalChecksum,
			CheckAdditionalChecksum:  f.checkAdditionalChecksum != "",
			SSE:                      sse,
			SSEKMSKeyID:              f.sseKMSKeyID,
			ACL:                      f.acl,
			StorageClass:             objmodel.StorageClass(f.storageClass),
			DisableTagging:           f.disableTagging,
			PutLastModifiedMetadata:  f.putLastModifiedMetadata,
		},
		RateLimitObjectsPerSecond: f.rateLimitObjects,
		RateLimitBandwidthBytes:   f.rateLimitBandwidth,
		WorkerSize:                f.workerSize,
		Delete:                    f.deleteFlag,
		DryRun:                    f.dryRun,
		Quiet:                     f.quiet,
	}

	if f.enableVersioning {
		if !source.Capabilities().Versioning || !target.Capabilities().Versioning {
			return errs.New(errs.CapabilityUnsupported, "", "--enable-versioning requires both endpoints to support versioning")
		}
	}

	result, err := syncengine.Run(ctx, cfg)
	printSummary(f.quiet, result)
	if err != nil {
		return err
	}
	if result.Summary.Errored > 0 {
		os.Exit(1)
	}
	if f.reportSyncStatus && reportHasMismatch(result.StatsReport) {
		os.Exit(2)
	}
	return nil
}

func printSummary(quiet bool, result syncengine.Result) {
	if quiet {
		return
	}
	if result.StatsReport.NumberOfObjects > 0 {
		fmt.Printf("objects=%d etag_matches=%d checksum_matches=%d not_found=%d etag_mismatch=%d checksum_mismatch=%d etag_unknown=%d checksum_unknown=%d\n",
			result.StatsReport.NumberOfObjects, result.StatsReport.EtagMatches, result.StatsReport.ChecksumMatches,
			result.StatsReport.NotFound, result.StatsReport.EtagMismatch, result.StatsReport.ChecksumMismatch,
			result.StatsReport.EtagUnknown, result.StatsReport.ChecksumUnknown)
		return
	}
	fmt.Printf("transferred=%d deleted=%d skipped=%d errored=%d bytes=%d duration=%s\n",
		result.Summary.Transferred, result.Summary.Deleted, result.Summary.Skipped,
		result.Summary.Errored, result.Summary.BytesTransferred, result.Summary.Duration)
}

func reportHasMismatch(r objmodel.SyncStatsReport) bool {
	return r.NotFound > 0 || r.EtagMismatch > 0 || r.ChecksumMismatch > 0 || r.EtagUnknown > 0 || r.ChecksumUnknown > 0
}

func parseChecksumAlgorithm(s string) (objmodel.ChecksumAlgorithm, error) {
	switch strings.ToUpper(s) {
	case "":
		return objmodel.ChecksumNone, nil
	case "CRC32":
		return objmodel.ChecksumCRC32, nil
	case "CRC32C":
		return objmodel.ChecksumCRC32C, nil
	case "CRC64NVME":
		return objmodel.ChecksumCRC64NVME, nil
	case "SHA1":
		return objmodel.ChecksumSHA1, nil
	case "SHA256":
		return objmodel.ChecksumSHA256, nil
	default:
		return "", errs.New(errs.Config, "", "unknown checksum algorithm %q", s)
	}
}

func parseSSEType(s string) (objmodel.SSEType, error) {
	switch s {
	case "":
		return objmodel.SSENone, nil
	case "AES256":
		return objmodel.SSEAES256, nil
	case "aws:kms":
		return objmodel.SSEKMS, nil
	default:
		return "", errs.New(errs.Config, "", "unknown --sse value %q", s)
	}
}

func sseConfig(alg, key, keyMD5 string) *s3endpoint.SSEC {
	if alg == "" {
		return nil
	}
	return &s3endpoint.SSEC{Algorithm: alg, Key: key, KeyMD5: keyMD5}
}
