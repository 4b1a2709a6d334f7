package network

import (
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// PackageContentType is the Content-Type of every staged package.
const PackageContentType = "application/x-tar"

// StagingUploader sends packaged deposits to the staging bucket,
// where the archive collects them. The S3 session is created on the
// first upload.
type StagingUploader struct {
	Region   string
	Endpoint string
	Bucket   string

	once       sync.Once
	session    *session.Session
	sessionErr error
}

func NewStagingUploader(region, endpoint, bucket string) *StagingUploader {
	return &StagingUploader{
		Region:   region,
		Endpoint: endpoint,
		Bucket:   bucket,
	}
}

// UploadInput describes the upload of reader to key, with each
// metadata entry stored as user metadata on the object.
func (uploader *StagingUploader) UploadInput(key string, reader io.Reader, metadata map[string]string) *s3manager.UploadInput {
	input := &s3manager.UploadInput{
		Bucket:      aws.String(uploader.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(PackageContentType),
		Body:        reader,
		Metadata:    make(map[string]*string, len(metadata)),
	}
	for name, value := range metadata {
		input.Metadata[name] = aws.String(value)
	}
	return input
}

func (uploader *StagingUploader) getSession() (*session.Session, error) {
	uploader.once.Do(func() {
		uploader.session, uploader.sessionErr = GetS3Session(uploader.Region, uploader.Endpoint)
	})
	return uploader.session, uploader.sessionErr
}

// Upload sends reader to key in the staging bucket and returns the
// location of the new object. The caller closes reader.
func (uploader *StagingUploader) Upload(key string, reader io.Reader, metadata map[string]string) (string, error) {
	_session, err := uploader.getSession()
	if err != nil {
		return "", fmt.Errorf("Upload of %s to %s failed: %v", key, uploader.Bucket, err)
	}
	s3Uploader := s3manager.NewUploader(_session)
	// Abandoned parts are billed.
	s3Uploader.LeavePartsOnError = false
	output, err := s3Uploader.Upload(uploader.UploadInput(key, reader, metadata))
	if err != nil {
		return "", fmt.Errorf("Upload of %s to %s failed: %v", key, uploader.Bucket, err)
	}
	return output.Location, nil
}
