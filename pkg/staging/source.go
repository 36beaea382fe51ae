package staging

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/canopy-network/salesdw/pkg/utils"
)

// S3API is the part of *s3.Client used for sources and artifacts.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds an S3 client from the default AWS credential chain. A non-empty endpoint
// selects an S3-compatible service with path-style addressing.
func NewS3Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Fetcher reads source documents from local paths, http(s) URLs and s3://bucket/key objects.
type Fetcher struct {
	HTTP *http.Client
	S3   S3API // nil disables s3:// sources
}

// NewFetcher returns a fetcher with a bounded HTTP client.
func NewFetcher(s3Client S3API) *Fetcher {
	timeout := time.Duration(utils.EnvInt("SOURCE_HTTP_TIMEOUT_SECONDS", 60)) * time.Second
	return &Fetcher{HTTP: &http.Client{Timeout: timeout}, S3: s3Client}
}

// Fetch returns the whole document at uri.
func (f *Fetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	rc, err := f.open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}
	return raw, nil
}

func (f *Fetcher) open(ctx context.Context, uri string) (io.ReadCloser, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" || u.Scheme == "file" {
		p := uri
		if err == nil && u.Scheme == "file" {
			p = u.Path
		}
		return os.Open(p)
	}

	switch u.Scheme {
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, err
		}
		resp, err := f.HTTP.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", uri, err)
		}
		if resp.StatusCode != http.StatusOK {
			drainAndClose(resp.Body)
			return nil, fmt.Errorf("fetch %s: unexpected status %s", uri, resp.Status)
		}
		return resp.Body, nil
	case "s3":
		if f.S3 == nil {
			return nil, fmt.Errorf("fetch %s: no s3 client configured", uri)
		}
		out, err := f.S3.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(u.Host),
			Key:    aws.String(strings.TrimPrefix(u.Path, "/")),
		})
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", uri, err)
		}
		return out.Body, nil
	default:
		return nil, fmt.Errorf("unsupported source scheme %q", u.Scheme)
	}
}

// drainAndClose lets the transport reuse the connection of a response we do not read.
func drainAndClose(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, rc)
	_ = rc.Close()
}
