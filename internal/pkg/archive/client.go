package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"

	"github.com/futapp/futapp-api/internal/pkg/config"
)

// ObjectStore stores archived payloads.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, metadata map[string]string) error
}

// S3Client writes objects to an S3 compatible bucket.
type S3Client struct {
	s3Client *s3.Client
	bucket   string
}

// NewS3Client creates an S3 client and checks that the bucket is reachable.
func NewS3Client(ctx context.Context, cfg config.Archive) (*S3Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("bucket %s not accessible: %w", cfg.Bucket, err)
	}

	log.Infof("[Archive] Initialized S3 client for bucket: %s", cfg.Bucket)
	return &S3Client{s3Client: client, bucket: cfg.Bucket}, nil
}

func (c *S3Client) Put(ctx context.Context, key string, body []byte, metadata map[string]string) error {
	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("application/json"),
		Metadata:      metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}
