package assetstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Store stores assets in an S3 compatible bucket.
type S3Store struct {
	client        *s3.Client
	bucket        string
	region        string
	endpoint      string
	publicBaseURL string
	usePathStyle  bool
}

func NewS3Store(ctx context.Context, config Config) (*S3Store, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("s3 asset store requires a bucket")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if config.Region != "" {
		opts = append(opts, awsconfig.WithRegion(config.Region))
	}
	if config.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			config.AccessKeyID,
			config.SecretAccessKey,
			"",
		)))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
		o.UsePathStyle = config.UsePathStyle
	})

	return &S3Store{
		client:        client,
		bucket:        config.Bucket,
		region:        cfg.Region,
		endpoint:      config.Endpoint,
		publicBaseURL: config.PublicBaseURL,
		usePathStyle:  config.UsePathStyle,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentType:   &contentType,
		ContentLength: aws.Int64(int64(len(data))),
		IfNoneMatch:   aws.String("*"),
	})
	if err != nil {
		if isS3Conflict(err) {
			return fmt.Errorf("%w: %s", ErrExists, key)
		}
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer func() {
		_ = output.Body.Close()
	}()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// isS3Conflict reports a failed If-None-Match precondition or a concurrent conditional write
func isS3Conflict(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}

func (s *S3Store) PublicURL(key string) string {
	return s3PublicURL(s.publicBaseURL, s.endpoint, s.bucket, s.region, s.usePathStyle, key)
}

func s3PublicURL(publicBaseURL, endpoint, bucket, region string, usePathStyle bool, key string) string {
	switch {
	case publicBaseURL != "":
		return joinURL(publicBaseURL, key)
	case endpoint != "" && usePathStyle:
		return joinURL(endpoint, bucket+"/"+key)
	case endpoint != "":
		scheme, host, found := strings.Cut(endpoint, "://")
		if !found {
			return joinURL(endpoint, bucket+"/"+key)
		}
		return joinURL(scheme+"://"+bucket+"."+host, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
	}
}
