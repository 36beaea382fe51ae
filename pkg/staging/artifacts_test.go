package staging

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/canopy-network/salesdw/pkg/batcherr"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeS3 keeps objects in memory keyed by bucket/key.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(body)))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = body
	f.puts++
	return &s3.PutObjectOutput{}, nil
}

func TestArtifactKeys(t *testing.T) {
	d := time.Date(2022, time.March, 1, 23, 0, 0, 0, time.UTC)
	require.Equal(t, "staging/raw_sales_2022-03-01", RawKey(d))
	require.Equal(t, "transformed/sales_2022-03-01", TransformedKey(d))
}

func TestS3WriterIsWriteOnce(t *testing.T) {
	fake := newFakeS3()
	w, err := NewArtifactWriter("s3://sales-data-pipeline/loads", fake)
	require.NoError(t, err)

	ctx := context.Background()
	written, err := w.Put(ctx, "staging/raw_sales_2022-03-01", []byte("first"))
	require.NoError(t, err)
	require.True(t, written)

	written, err = w.Put(ctx, "staging/raw_sales_2022-03-01", []byte("second"))
	require.NoError(t, err)
	require.False(t, written)

	require.Equal(t, []byte("first"), fake.objects["sales-data-pipeline/loads/staging/raw_sales_2022-03-01"])
	require.Equal(t, 1, fake.puts)
}

func TestDirWriterIsWriteOnce(t *testing.T) {
	dir := t.TempDir()
	w, err := NewArtifactWriter(dir, nil)
	require.NoError(t, err)

	ctx := context.Background()
	written, err := w.Put(ctx, "transformed/sales_2022-03-01", []byte("first"))
	require.NoError(t, err)
	require.True(t, written)

	written, err = w.Put(ctx, "transformed/sales_2022-03-01", []byte("second"))
	require.NoError(t, err)
	require.False(t, written)

	got, err := os.ReadFile(filepath.Join(dir, "transformed", "sales_2022-03-01"))
	require.NoError(t, err)
	require.Equal(t, "first", string(got))
}

func TestDirWriterFailedWriteCanBeRetried(t *testing.T) {
	dir := t.TempDir()
	w := &DirWriter{Dir: dir}
	w.write = func(f *os.File, body []byte) error {
		_, _ = f.Write(body[:2])
		return io.ErrShortWrite
	}

	ctx := context.Background()
	written, err := w.Put(ctx, "raw/sales_2022-03-01", []byte("complete"))
	require.ErrorIs(t, err, io.ErrShortWrite)
	require.False(t, written)
	_, err = os.Stat(filepath.Join(dir, "raw", "sales_2022-03-01"))
	require.True(t, os.IsNotExist(err))

	w.write = nil
	written, err = w.Put(ctx, "raw/sales_2022-03-01", []byte("complete"))
	require.NoError(t, err)
	require.True(t, written)

	got, err := os.ReadFile(filepath.Join(dir, "raw", "sales_2022-03-01"))
	require.NoError(t, err)
	require.Equal(t, "complete", string(got))
}

func TestNewArtifactWriter(t *testing.T) {
	w, err := NewArtifactWriter("", nil)
	require.NoError(t, err)
	require.Nil(t, w)

	_, err = NewArtifactWriter("s3://bucket", nil)
	require.Error(t, err)
}

func TestEncodeCSVIsReadBack(t *testing.T) {
	records, err := Normalize(Table{Header: rawHeader, Rows: [][]string{
		rawRow(nil),
		rawRow(map[string]string{"CUSTOMERNAME": "Reims Collectables, Ltd", "TERRITORY": "EMEA"}),
	}})
	require.NoError(t, err)

	out, err := EncodeCSV(records)
	require.NoError(t, err)

	table, err := ReadTable(TransformedKey(time.Now()), out)
	require.NoError(t, err)
	require.Equal(t, Columns, table.Header)

	again, err := Normalize(table)
	require.NoError(t, err)
	require.Len(t, again, len(records))
	for i := range records {
		require.Equal(t, records[i].CustomerName, again[i].CustomerName)
		require.Equal(t, records[i].OrderDate, again[i].OrderDate)
		require.True(t, records[i].PriceEach.Equal(again[i].PriceEach))
	}
}

func rawCSV(t *testing.T, rows ...[]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(joinCSV(rawHeader))
	for _, r := range rows {
		buf.WriteString(joinCSV(r))
	}
	return buf.Bytes()
}

func joinCSV(cells []string) string {
	out := ""
	for i, c := range cells {
		if i > 0 {
			out += ","
		}
		out += "\"" + c + "\""
	}
	return out + "\n"
}

func TestStagerFromHTTPWritesBothArtifacts(t *testing.T) {
	body := rawCSV(t, rawRow(nil), rawRow(map[string]string{"ORDERLINENUMBER": "3"}))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	fake := newFakeS3()
	stager := &Stager{
		Logger:    zaptest.NewLogger(t),
		Fetcher:   NewFetcher(nil),
		Artifacts: &S3Writer{Client: fake, Bucket: "sales"},
	}
	batchDate := time.Date(2022, time.March, 1, 0, 0, 0, 0, time.UTC)

	records, err := stager.Stage(context.Background(), srv.URL+"/raw_sales2.csv", batchDate)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, body, fake.objects["sales/staging/raw_sales_2022-03-01"])
	require.Contains(t, string(fake.objects["sales/transformed/sales_2022-03-01"]), "suggested_retail_price")
}

func TestStagerFromS3KeepsRawArtifactOnMalformedInput(t *testing.T) {
	fake := newFakeS3()
	fake.objects["landing/raw_sales2.csv"] = rawCSV(t, rawRow(map[string]string{"ORDERDATE": "yesterday"}))

	stager := &Stager{
		Logger:    zaptest.NewLogger(t),
		Fetcher:   NewFetcher(fake),
		Artifacts: &S3Writer{Client: fake, Bucket: "sales"},
	}
	batchDate := time.Date(2022, time.March, 2, 0, 0, 0, 0, time.UTC)

	_, err := stager.Stage(context.Background(), "s3://landing/raw_sales2.csv", batchDate)
	require.True(t, batcherr.IsMalformedInput(err))
	require.Contains(t, fake.objects, "sales/staging/raw_sales_2022-03-02")
	require.NotContains(t, fake.objects, "sales/transformed/sales_2022-03-02")
}

func TestFetcherLocalFileAndErrors(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(p, []byte("a,b\n"), 0o644))

	f := NewFetcher(nil)
	raw, err := f.Fetch(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, "a,b\n", string(raw))

	_, err = f.Fetch(context.Background(), "s3://bucket/key.csv")
	require.Error(t, err)

	_, err = f.Fetch(context.Background(), "ftp://host/file.csv")
	require.Error(t, err)

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, err = f.Fetch(context.Background(), srv.URL+"/missing.csv")
	require.Error(t, err)
}
