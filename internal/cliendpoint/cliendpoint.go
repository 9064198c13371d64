// Package cliendpoint resolves a positional CLI argument ("s3://bucket/prefix"
// or a filesystem path) into the endpoint.Endpoint the sync engine needs,
// and loads the AWS config shared by an s3:// argument on either side.
// Both cmd/s3sync and cmd/s3sync-report go through this so the URI syntax
// of spec.md §6 stays in exactly one place.
package cliendpoint

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yuya-takeyama/s3sync/internal/endpoint"
	"github.com/yuya-takeyama/s3sync/internal/endpoint/local"
	"github.com/yuya-takeyama/s3sync/internal/endpoint/s3endpoint"
	"github.com/yuya-takeyama/s3sync/internal/errs"
)

// IsS3URI reports whether arg addresses an S3 bucket rather than a local path.
func IsS3URI(arg string) bool {
	return strings.HasPrefix(arg, "s3://")
}

// LoadAWSConfig loads the shared AWS config when either side of the sync
// is an S3 URI; it returns ok=false (and a zero aws.Config) when neither
// side needs one, so a pure local-to-local run never touches credentials.
func LoadAWSConfig(ctx context.Context, profile, region string, sides ...string) (cfg aws.Config, ok bool, err error) {
	needed := false
	for _, s := range sides {
		if IsS3URI(s) {
			needed = true
		}
	}
	if !needed {
		return aws.Config{}, false, nil
	}

	var opts []func(*config.LoadOptions) error
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err = config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, false, errs.Wrap(errs.Auth, "", err)
	}
	return cfg, true, nil
}

// NewS3Client builds an s3.Client from cfg, honoring an optional endpoint
// URL override for S3-compatible stores (spec.md §6 --endpoint-url).
func NewS3Client(cfg aws.Config, endpointURL string) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpointURL != "" {
			o.BaseEndpoint = aws.String(endpointURL)
		}
	})
}

// Options carries the endpoint-construction knobs that come from CLI flags.
type Options struct {
	Excludes  []string
	MaxKeys   int32
	Versioned bool
	ReadSSEC  *s3endpoint.SSEC
	WriteSSEC *s3endpoint.SSEC
}

// Build resolves uri into an endpoint.Endpoint: an S3 bucket/prefix when
// uri has an "s3://" prefix (client must be non-nil in that case), a local
// directory tree otherwise.
func Build(client *s3.Client, uri string, opts Options) (endpoint.Endpoint, error) {
	if IsS3URI(uri) {
		bucket, prefix, err := ParseS3URI(uri)
		if err != nil {
			return nil, err
		}
		return s3endpoint.New(client, s3endpoint.Config{
			Bucket:    bucket,
			Prefix:    prefix,
			Versioned: opts.Versioned,
			MaxKeys:   opts.MaxKeys,
			ReadSSEC:  opts.ReadSSEC,
			WriteSSEC: opts.WriteSSEC,
		}), nil
	}
	return local.New(local.Config{Root: uri, Excludes: opts.Excludes})
}

// ParseS3URI splits "s3://bucket[/prefix]" into its bucket and
// slash-terminated prefix.
func ParseS3URI(uri string) (bucket, prefix string, err error) {
	rest := strings.TrimPrefix(uri, "s3://")
	if rest == "" {
		return "", "", errs.New(errs.Config, uri, "empty S3 URI")
	}
	parts := strings.SplitN(rest, "/", 2)
	bucket = parts[0]
	if bucket == "" {
		return "", "", errs.New(errs.Config, uri, "S3 URI missing bucket")
	}
	if len(parts) == 2 {
		prefix = parts[1]
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
	}
	return bucket, prefix, nil
}
