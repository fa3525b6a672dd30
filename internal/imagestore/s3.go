package imagestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dalanapp/dalan-go/internal/conf"
	"github.com/dalanapp/dalan-go/internal/errors"
)

// S3Store keeps images in an S3 compatible bucket. MinIO works through the
// optional endpoint override.
type S3Store struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

// NewS3Store builds the AWS client from settings. Static credentials are used
// when configured, otherwise the default provider chain applies.
func NewS3Store(ctx context.Context, settings *conf.Settings) (*S3Store, error) {
	s3cfg := settings.ImageStore.S3

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(s3cfg.Region),
	}
	if s3cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3cfg.AccessKey, s3cfg.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.New(err).
			Component("imagestore").
			Category(errors.CategoryConfiguration).
			Context("region", s3cfg.Region).
			Build()
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s3cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s3cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicBase := strings.TrimSuffix(s3cfg.PublicBaseURL, "/")
	if publicBase == "" {
		publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", s3cfg.Bucket, s3cfg.Region)
	}

	return &S3Store{
		client:        client,
		bucket:        s3cfg.Bucket,
		publicBaseURL: publicBase,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, kind Kind, userID string, imageData []byte) (string, error) {
	key := objectKey(kind, userID)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(imageData),
		ContentType:  aws.String("image/jpeg"),
		CacheControl: aws.String("max-age=31536000"),
	})
	if err != nil {
		return "", errors.New(err).
			Component("imagestore").
			Category(errors.CategoryImageStore).
			Context("bucket", s.bucket).
			Context("key", key).
			Build()
	}

	return fmt.Sprintf("%s/%s", s.publicBaseURL, key), nil
}

func (s *S3Store) Get(ctx context.Context, url string) ([]byte, error) {
	key := strings.TrimPrefix(strings.TrimPrefix(url, s.publicBaseURL), "/")

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.New(err).
			Component("imagestore").
			Category(errors.CategoryImageStore).
			Context("bucket", s.bucket).
			Context("key", key).
			Build()
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}
