package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appConfig "github.com/kendall-kelly/transformers-api/config"
	"github.com/rs/zerolog/log"
)

// PresignExpiry is how long an archived document URL stays valid
const PresignExpiry = time.Hour

// ErrDocumentStoreDisabled is returned when archiving is requested but no bucket is configured
var ErrDocumentStoreDisabled = errors.New("document store is not configured")

// DocumentStore keeps generated documents in object storage
type DocumentStore interface {
	Upload(ctx context.Context, key string, content []byte, contentType string) error
	PresignedURL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// S3DocumentStore stores documents in an S3 bucket
type S3DocumentStore struct {
	client *s3.Client
	bucket string
}

var documentStoreInstance DocumentStore

// InitDocumentStore initializes the S3 document store from the process configuration
func InitDocumentStore(ctx context.Context) (DocumentStore, error) {
	cfg := appConfig.GetConfig()
	if cfg == nil || !cfg.S3Enabled() {
		return nil, ErrDocumentStoreDisabled
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	documentStoreInstance = &S3DocumentStore{
		client: s3.NewFromConfig(awsConfig),
		bucket: cfg.AWSS3Bucket,
	}
	return documentStoreInstance, nil
}

// GetDocumentStore returns the initialized document store, or nil
func GetDocumentStore() DocumentStore {
	return documentStoreInstance
}

// SetDocumentStore sets the document store instance (primarily for testing)
func SetDocumentStore(store DocumentStore) {
	documentStoreInstance = store
}

// Upload puts content under key
func (s *S3DocumentStore) Upload(ctx context.Context, key string, content []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

// PresignedURL generates a time-limited URL for a private object
func (s *S3DocumentStore) PresignedURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	request, err := s3.NewPresignClient(s.client).PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = PresignExpiry
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	log.Debug().Str("key", key).Msg("generated presigned URL")
	return request.URL, nil
}

// Delete removes the object under key
func (s *S3DocumentStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}
