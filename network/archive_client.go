package network

import (
	"io"
	"time"

	"github.com/minio/minio-go"
	"github.com/pkg/errors"
)

// ErrArchiveObjectNotFound means the archive does not hold the
// requested object.
var ErrArchiveObjectNotFound = errors.New("object not found in archive")

// ArchiveObject describes one object held by the archive.
type ArchiveObject struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
	Metadata     map[string]string
}

// ArchiveClient talks to the archive's S3-compatible interface.
// The status checker uses it to see whether the archive has taken
// a deposit, and the SWORD service uses it to return original
// deposits to providers.
type ArchiveClient struct {
	Bucket string
	client *minio.Client
}

// DefaultArchiveRegion is used when the archive does not name one.
const DefaultArchiveRegion = "us-east-1"

// NewArchiveClient returns a client for bucket at endpoint. Do not
// include the protocol in endpoint. E.g. use "example.com", not
// "https://example.com".
func NewArchiveClient(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*ArchiveClient, error) {
	client, err := minio.NewWithRegion(endpoint, accessKey, secretKey, useSSL, DefaultArchiveRegion)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot create archive client for %s", endpoint)
	}
	return &ArchiveClient{
		Bucket: bucket,
		client: client,
	}, nil
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

// Stat returns what the archive knows about key. If the archive
// does not have it, the error's cause is ErrArchiveObjectNotFound.
func (archive *ArchiveClient) Stat(key string) (*ArchiveObject, error) {
	info, err := archive.client.StatObject(archive.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, errors.Wrapf(ErrArchiveObjectNotFound, "%s/%s", archive.Bucket, key)
		}
		return nil, errors.Wrapf(err, "Cannot stat %s/%s", archive.Bucket, key)
	}
	metadata := make(map[string]string)
	for name, values := range info.Metadata {
		if len(values) > 0 {
			metadata[name] = values[0]
		}
	}
	return &ArchiveObject{
		Key:          info.Key,
		Size:         info.Size,
		ETag:         info.ETag,
		LastModified: info.LastModified,
		Metadata:     metadata,
	}, nil
}

// Open returns a reader for key and its size. The caller must close
// the reader.
func (archive *ArchiveClient) Open(key string) (io.ReadCloser, int64, error) {
	object, err := archive.client.GetObject(archive.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, errors.Wrapf(err, "Cannot open %s/%s", archive.Bucket, key)
	}
	info, err := object.Stat()
	if err != nil {
		object.Close()
		if isNotFound(err) {
			return nil, 0, errors.Wrapf(ErrArchiveObjectNotFound, "%s/%s", archive.Bucket, key)
		}
		return nil, 0, errors.Wrapf(err, "Cannot stat %s/%s", archive.Bucket, key)
	}
	return object, info.Size, nil
}
