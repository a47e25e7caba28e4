package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bootcamp-directory/internal/config"
)

// fileHeader builds a real multipart.FileHeader by parsing a form.
func fileHeader(t *testing.T, filename, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("PUT", "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func TestPhotosSave_Local(t *testing.T) {
	dir := t.TempDir()
	p := NewPhotos(NewLocal(dir), 1024)
	p.newID = func() string { return "abc" }

	name, err := p.Save(context.Background(), 7, fileHeader(t, "Campus.JPG", "image/jpeg", []byte("jpegdata")))
	require.NoError(t, err)
	assert.Equal(t, "photo_7_abc.jpg", name)

	got, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "jpegdata", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be cleaned up")
}

func TestPhotosSave_Rejects(t *testing.T) {
	p := NewPhotos(NewLocal(t.TempDir()), 4)

	_, err := p.Save(context.Background(), 1, fileHeader(t, "notes.txt", "text/plain", []byte("hi")))
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = p.Save(context.Background(), 1, fileHeader(t, "big.png", "image/png", []byte("123456789")))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestPhotoNameDropsClientPath(t *testing.T) {
	assert.Equal(t, "photo_3_x.png", PhotoName(3, "x", "../../etc/evil.PNG"))
	assert.Equal(t, "photo_3_x", PhotoName(3, "x", "noext"))
}

func TestLocalRejectsPathNames(t *testing.T) {
	l := NewLocal(t.TempDir())
	assert.Error(t, l.Put(context.Background(), "../x", "", bytes.NewReader(nil), 0))
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Put(t *testing.T) {
	fake := &fakeS3{}
	s := &S3{client: fake, bucket: "photos"}

	require.NoError(t, s.Put(context.Background(), "photo_1_a.png", "image/png", bytes.NewReader([]byte("png")), 3))
	assert.Equal(t, "photos", *fake.input.Bucket)
	assert.Equal(t, "photo_1_a.png", *fake.input.Key)
	assert.Equal(t, "image/png", *fake.input.ContentType)
	assert.EqualValues(t, 3, *fake.input.ContentLength)
	assert.Equal(t, "png", string(fake.body))

	fake.err = errors.New("denied")
	assert.ErrorContains(t, s.Put(context.Background(), "k", "image/png", bytes.NewReader(nil), 0), "denied")
}

func TestNewSelectsDriver(t *testing.T) {
	st, err := New(config.UploadConfig{Driver: "local", Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, st)

	st, err = New(config.UploadConfig{Driver: "s3", S3Bucket: "b", S3Region: "us-east-1", S3Endpoint: "http://minio:9000"})
	require.NoError(t, err)
	assert.IsType(t, &S3{}, st)

	_, err = New(config.UploadConfig{Driver: "ftp"})
	assert.Error(t, err)
}
