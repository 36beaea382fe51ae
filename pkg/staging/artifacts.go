package staging

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	models "github.com/canopy-network/salesdw/pkg/db/models/warehouse"
)

// RawKey is where the untouched source document of a batch is kept.
func RawKey(batchDate time.Time) string {
	return "staging/raw_sales_" + batchDate.UTC().Format(time.DateOnly)
}

// TransformedKey is where the canonical CSV of a batch is kept.
func TransformedKey(batchDate time.Time) string {
	return "transformed/sales_" + batchDate.UTC().Format(time.DateOnly)
}

// ArtifactWriter stores batch artifacts. Artifacts are write-once: Put leaves an existing key
// untouched and reports false.
type ArtifactWriter interface {
	Put(ctx context.Context, key string, body []byte) (bool, error)
}

// NewArtifactWriter returns an S3Writer for s3://bucket/prefix and a DirWriter for anything
// else. An empty uri disables artifacts and returns nil.
func NewArtifactWriter(uri string, s3Client S3API) (ArtifactWriter, error) {
	if uri == "" {
		return nil, nil
	}
	u, err := url.Parse(uri)
	if err == nil && u.Scheme == "s3" {
		if s3Client == nil {
			return nil, fmt.Errorf("artifact uri %s needs an s3 client", uri)
		}
		return &S3Writer{Client: s3Client, Bucket: u.Host, Prefix: strings.Trim(u.Path, "/")}, nil
	}
	return &DirWriter{Dir: uri}, nil
}

// S3Writer puts artifacts into a bucket under an optional prefix.
type S3Writer struct {
	Client S3API
	Bucket string
	Prefix string
}

func (w *S3Writer) key(key string) string {
	if w.Prefix == "" {
		return key
	}
	return path.Join(w.Prefix, key)
}

func (w *S3Writer) Put(ctx context.Context, key string, body []byte) (bool, error) {
	full := w.key(key)

	exists, err := w.exists(ctx, full)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	_, err = w.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(w.Bucket),
		Key:           aws.String(full),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("text/csv"),
	})
	if err != nil {
		return false, fmt.Errorf("put s3://%s/%s: %w", w.Bucket, full, err)
	}
	return true, nil
}

func (w *S3Writer) exists(ctx context.Context, key string) (bool, error) {
	_, err := w.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(w.Bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	if errors.As(err, &nf) || errors.As(err, &nsk) || strings.Contains(err.Error(), "NotFound") {
		return false, nil
	}
	return false, fmt.Errorf("head s3://%s/%s: %w", w.Bucket, key, err)
}

// DirWriter writes artifacts below a local directory.
type DirWriter struct {
	Dir string

	write func(f *os.File, body []byte) error // nil writes body as is
}

func (w *DirWriter) Put(_ context.Context, key string, body []byte) (bool, error) {
	p := filepath.Join(w.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return false, err
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	write := w.write
	if write == nil {
		write = func(f *os.File, body []byte) error {
			_, err := f.Write(body)
			return err
		}
	}
	err = write(f, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// A partial file would make every retry look like an already written artifact.
		_ = os.Remove(p)
		return false, err
	}
	return true, nil
}

// EncodeCSV renders records as canonical CSV with the Columns header.
func EncodeCSV(records []models.StagingRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Columns); err != nil {
		return nil, err
	}
	for _, r := range records {
		row := []string{
			r.OrderDate.Format(time.DateOnly),
			r.ShipDate.Format(time.DateOnly),
			strconv.FormatInt(r.OrderNumber, 10),
			strconv.FormatInt(r.OrderLineNumber, 10),
			r.ProductCode,
			r.ProductLine,
			strconv.FormatInt(r.SuggestedRetailPrice, 10),
			strconv.FormatInt(r.CustomerID, 10),
			r.CustomerName,
			r.City,
			r.Country,
			r.Territory,
			r.ContactLastName,
			r.ContactFirstName,
			strconv.FormatInt(r.QuantityOrdered, 10),
			r.PriceEach.StringFixed(2),
			r.Sales.StringFixed(2),
			r.Status,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
