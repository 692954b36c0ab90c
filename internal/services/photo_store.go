package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"calbot/internal/config"
)

// PhotoStore archives meal photos and returns the reference stored on the
// meal. An empty reference means the photo was not archived.
type PhotoStore interface {
	Save(ctx context.Context, userID int64, data []byte) (string, error)
}

type noopPhotoStore struct{}

func NewNoopPhotoStore() PhotoStore { return noopPhotoStore{} }

func (noopPhotoStore) Save(context.Context, int64, []byte) (string, error) { return "", nil }

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3PhotoStore struct {
	client    objectPutter
	bucket    string
	prefix    string
	publicURL string
	logger    *zap.Logger
}

// NewPhotoStore returns the S3 archive when a bucket is configured and a
// no-op store otherwise.
func NewPhotoStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (PhotoStore, error) {
	if cfg.S3Bucket == "" {
		return NewNoopPhotoStore(), nil
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return newS3PhotoStore(s3.NewFromConfig(awsCfg), cfg, logger), nil
}

func newS3PhotoStore(client objectPutter, cfg config.StorageConfig, logger *zap.Logger) *s3PhotoStore {
	return &s3PhotoStore{
		client:    client,
		bucket:    cfg.S3Bucket,
		prefix:    strings.Trim(cfg.S3Prefix, "/"),
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		logger:    logger.Named("photo_store"),
	}
}

func (s *s3PhotoStore) Save(ctx context.Context, userID int64, data []byte) (string, error) {
	contentType := http.DetectContentType(data)
	key := fmt.Sprintf("%s/%d/%s%s", s.prefix, userID, uuid.NewString(), extensionFor(contentType))
	key = strings.TrimPrefix(key, "/")

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.Error("failed to upload meal photo", zap.Int64("user_id", userID), zap.Error(err))
		return "", fmt.Errorf("failed to upload to s3: %w", err)
	}

	if s.publicURL != "" {
		return s.publicURL + "/" + key, nil
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
