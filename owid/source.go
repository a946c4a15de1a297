// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

package owid

import (
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultURL is where OWID publishes the dataset.
const DefaultURL = "https://covid.ourworldindata.org/data/owid-covid-data.csv"

// Source describes where to read a dataset from.
type Source struct {
	// Location is a local path, an http(s) URL, or an s3://bucket/key URL.
	// Data ending in ".gz" is decompressed.
	Location string

	// S3 settings, used for s3:// locations.
	S3Region      string
	S3Endpoint    string // for S3-compatible services, e.g. MinIO
	S3PathStyle   bool
	S3AccessKeyID string // if empty, the default AWS credential chain is used
	S3SecretKey   string

	// HTTPClient is used for http(s) locations. http.DefaultClient is used if nil.
	HTTPClient *http.Client
}

// Remote returns true if src's data doesn't come from the local filesystem.
func (src Source) Remote() bool {
	switch scheme(src.Location) {
	case "http", "https", "s3":
		return true
	}
	return false
}

func scheme(loc string) string {
	if i := strings.Index(loc, "://"); i > 0 {
		return strings.ToLower(loc[:i])
	}
	return ""
}

// Open returns a reader for src's (decompressed) data.
func Open(ctx context.Context, src Source) (io.ReadCloser, error) {
	var rc io.ReadCloser
	var err error
	switch scheme(src.Location) {
	case "":
		rc, err = os.Open(src.Location)
	case "http", "https":
		rc, err = openHTTP(ctx, src)
	case "s3":
		rc, err = openS3(ctx, src)
	default:
		return nil, fmt.Errorf("unsupported dataset location %q", src.Location)
	}
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(src.Location, ".gz") {
		return rc, nil
	}
	gr, err := gzip.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("failed decompressing %v: %v", src.Location, err)
	}
	return &gzipReadCloser{gr, rc}, nil
}

// gzipReadCloser closes both the gzip reader and the underlying compressed stream.
type gzipReadCloser struct {
	*gzip.Reader
	under io.Closer
}

func (g *gzipReadCloser) Close() error {
	gerr := g.Reader.Close()
	if err := g.under.Close(); err != nil {
		return err
	}
	return gerr
}

func openHTTP(ctx context.Context, src Source) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Location, nil)
	if err != nil {
		return nil, err
	}
	client := src.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %v: %v", src.Location, resp.Status)
	}
	return resp.Body, nil
}

func openS3(ctx context.Context, src Source) (io.ReadCloser, error) {
	u, err := url.Parse(src.Location)
	if err != nil {
		return nil, err
	}
	bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("s3 location %q needs both bucket and key", src.Location)
	}

	var opts []func(*awsconfig.LoadOptions) error
	if src.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(src.S3Region))
	}
	if src.S3AccessKeyID != "" && src.S3SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(src.S3AccessKeyID, src.S3SecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed loading AWS config: %v", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if src.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(src.S3Endpoint)
		}
		o.UsePathStyle = src.S3PathStyle
	})

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching %v: %v", src.Location, err)
	}
	return out.Body, nil
}

// Load reads and parses the dataset from src.
// The returned Dataset's Digest identifies the decompressed data.
func Load(ctx context.Context, src Source) (*Dataset, error) {
	rc, err := Open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	h := sha256.New()
	ds, err := Read(io.TeeReader(rc, h))
	if err != nil {
		return nil, fmt.Errorf("failed reading %v: %v", src.Location, err)
	}
	// Hash anything the CSV reader didn't consume.
	if _, err := io.Copy(h, rc); err != nil {
		return nil, err
	}
	ds.Digest = hex.EncodeToString(h.Sum(nil))
	return ds, nil
}
