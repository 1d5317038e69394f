// Package r2client stores snapshots in Cloudflare R2 object storage.
// It wraps the AWS S3 SDK and compresses documents with zstd.
package r2client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	domerrors "github.com/tulul/tululbot/internal/errors"
)

// Config holds R2 client configuration.
type Config struct {
	Endpoint    string // R2 endpoint URL (e.g., https://account-id.r2.cloudflarestorage.com)
	AccessKeyID string
	SecretKey   string
	BucketName  string
}

// Client provides R2 object storage operations.
type Client struct {
	s3     *s3.Client
	bucket string
}

// Object is a downloaded object. Caller must close Body.
type Object struct {
	Body     io.ReadCloser
	ETag     string
	Metadata map[string]string
}

// ObjectInfo describes a stored object without its body.
type ObjectInfo struct {
	Metadata     map[string]string
	LastModified time.Time
	Size         int64
}

// New creates a new R2 client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.SecretKey == "" || cfg.BucketName == "" {
		return nil, errors.New("r2client: all config fields are required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2client: load aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true // Required for R2
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return &Client{
		s3:     s3Client,
		bucket: cfg.BucketName,
	}, nil
}

// Upload uploads an object to R2 with optional user metadata.
// Returns the ETag of the uploaded object.
func (c *Client) Upload(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:   aws.String(c.bucket),
		Key:      aws.String(key),
		Body:     body,
		Metadata: metadata,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	result, err := c.s3.PutObject(ctx, input)
	if err != nil {
		return "", fmt.Errorf("r2client: upload %q: %w", key, err)
	}
	return trimETag(result.ETag), nil
}

// Download downloads an object from R2.
func (c *Client) Download(ctx context.Context, key string) (*Object, error) {
	result, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("r2client: %q: %w", key, domerrors.ErrNotFound)
		}
		return nil, fmt.Errorf("r2client: download %q: %w", key, err)
	}

	return &Object{
		Body:     result.Body,
		ETag:     trimETag(result.ETag),
		Metadata: result.Metadata,
	}, nil
}

// HeadObject returns an object's metadata and modification time without
// downloading it.
func (c *Client) HeadObject(ctx context.Context, key string) (*ObjectInfo, error) {
	result, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("r2client: %q: %w", key, domerrors.ErrNotFound)
		}
		return nil, fmt.Errorf("r2client: head %q: %w", key, err)
	}
	return &ObjectInfo{
		Metadata:     result.Metadata,
		LastModified: aws.ToTime(result.LastModified),
		Size:         aws.ToInt64(result.ContentLength),
	}, nil
}

func trimETag(etag *string) string {
	if etag == nil {
		return ""
	}
	return strings.Trim(*etag, "\"")
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "404":
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return true
	}
	return false
}
