package blob

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"file-drop-service/pkg/errors"
)

// S3Config holds the settings for the S3-backed blob store.
// AccessKey/SecretKey are optional; when empty the default AWS
// credential chain (env, shared config, instance role) is used.
type S3Config struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	// Prefix is prepended to every object key, so one bucket can host
	// several deployments.
	Prefix string
}

// S3Store implements Store using an S3 bucket via AWS SDK v2
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Store creates a blob store backed by the configured S3 bucket
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.NewAppError(errors.ErrInvalidConfig, "S3 bucket name cannot be empty", nil)
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		// AWS SDK v2 has built-in retry logic with exponential backoff
		awsconfig.WithRetryMode(aws.RetryModeStandard),
		awsconfig.WithRetryMaxAttempts(3),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidConfig, "failed to load AWS configuration", err)
	}

	client := s3.NewFromConfig(awsCfg)

	// The uploader handles multipart uploads transparently for large blobs
	uploader := manager.NewUploader(client)

	return &S3Store{
		client:   client,
		uploader: uploader,
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Write uploads the content under storageName
func (s *S3Store) Write(ctx context.Context, storageName string, content io.Reader) (int64, error) {
	if err := validateStorageName(storageName); err != nil {
		return 0, err
	}

	counter := &countingReader{reader: content}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(storageName)),
		Body:   counter,
	})
	if err != nil {
		return 0, s.wrapS3Error("upload blob", storageName, err)
	}

	return counter.bytesRead, nil
}

// Exists reports whether an object is present under storageName
func (s *S3Store) Exists(ctx context.Context, storageName string) (bool, error) {
	if err := validateStorageName(storageName); err != nil {
		return false, err
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(storageName)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, s.wrapS3Error("stat blob", storageName, err)
	}

	return true, nil
}

// Read streams the object under storageName
func (s *S3Store) Read(ctx context.Context, storageName string) (io.ReadCloser, error) {
	if err := validateStorageName(storageName); err != nil {
		return nil, err
	}

	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(storageName)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, errors.NewAppError(errors.ErrFileNotFound,
				fmt.Sprintf("blob '%s' not found", storageName), err)
		}
		return nil, s.wrapS3Error("read blob", storageName, err)
	}

	return output.Body, nil
}

// Delete removes the object; S3 deletes are idempotent by contract
func (s *S3Store) Delete(ctx context.Context, storageName string) error {
	if err := validateStorageName(storageName); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(storageName)),
	})
	if err != nil {
		return s.wrapS3Error("delete blob", storageName, err)
	}

	return nil
}

func (s *S3Store) key(storageName string) string {
	if s.prefix == "" {
		return storageName
	}
	return s.prefix + "/" + storageName
}

// wrapS3Error converts AWS S3 errors into the application taxonomy
func (s *S3Store) wrapS3Error(operation, storageName string, err error) error {
	errStr := err.Error()
	if strings.Contains(errStr, "AccessDenied") {
		return errors.NewAppError(errors.ErrIOFailure,
			fmt.Sprintf("access denied to S3 bucket '%s'", s.bucket), err)
	}
	if strings.Contains(errStr, "NoSuchBucket") {
		return errors.NewAppError(errors.ErrIOFailure,
			fmt.Sprintf("S3 bucket '%s' does not exist", s.bucket), err)
	}
	return errors.NewAppError(errors.ErrIOFailure,
		fmt.Sprintf("failed to %s '%s'", operation, storageName), err)
}

// isS3NotFound checks for missing-object error responses.
// AWS SDK v2 surfaces these as NoSuchKey (GetObject) or NotFound (HeadObject).
func isS3NotFound(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "NoSuchKey") || strings.Contains(errStr, "NotFound") ||
		strings.Contains(errStr, "StatusCode: 404")
}

// countingReader wraps an io.Reader and counts the bytes read through it
type countingReader struct {
	reader    io.Reader
	bytesRead int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.reader.Read(p)
	cr.bytesRead += int64(n)
	return n, err
}
