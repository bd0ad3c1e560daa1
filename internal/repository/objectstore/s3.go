// Package objectstore stores attachment objects in an S3-compatible bucket.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/SADDAMSER/BaladyClone-sub006/internal/core/port"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/infra/config"
	"github.com/SADDAMSER/BaladyClone-sub006/internal/repository"
)

var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

type objectAPI interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

type presignAPI interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store implements port.ObjectStore on top of the AWS SDK.
type S3Store struct {
	objects objectAPI
	presign presignAPI
	bucket  string
	now     func() time.Time
}

// NewS3Store builds an S3 client from cfg. Static credentials are used when
// an access key is configured; otherwise the default AWS chain applies.
func NewS3Store(ctx context.Context, cfg config.StorageSettings) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3Store(client, s3.NewPresignClient(client), cfg.S3Bucket), nil
}

func newS3Store(objects objectAPI, presign presignAPI, bucket string) *S3Store {
	return &S3Store{
		objects: objects,
		presign: presign,
		bucket:  bucket,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Metadata returns the user metadata of key, or found=false if the object does not exist.
func (s *S3Store) Metadata(ctx context.Context, key string) (map[string]string, bool, error) {
	head, err := s.head(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	metadata := make(map[string]string, len(head.Metadata))
	for k, v := range head.Metadata {
		metadata[strings.ToLower(k)] = v
	}
	return metadata, true, nil
}

// ReplaceMetadata overwrites all user metadata by copying the object onto itself.
func (s *S3Store) ReplaceMetadata(ctx context.Context, key string, metadata map[string]string) error {
	head, err := s.head(ctx, key)
	if err != nil {
		return err
	}

	_, err = s.objects.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(s.bucket),
		Key:               aws.String(key),
		CopySource:        aws.String(copySource(s.bucket, key)),
		ContentType:       head.ContentType,
		Metadata:          metadata,
		MetadataDirective: types.MetadataDirectiveReplace,
	})
	if err != nil {
		return fmt.Errorf("replace object metadata: %w", err)
	}
	return nil
}

// PresignPut returns a single-use upload request whose signature covers the
// content type and metadata headers.
func (s *S3Store) PresignPut(ctx context.Context, key, contentType string, metadata map[string]string, ttl time.Duration) (port.PresignedRequest, error) {
	in := &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		Metadata: metadata,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	req, err := s.presign.PresignPutObject(ctx, in, s3.WithPresignExpires(ttl))
	if err != nil {
		return port.PresignedRequest{}, fmt.Errorf("presign put object: %w", err)
	}
	return s.toPresigned(req, ttl), nil
}

// PresignGet returns a time-boxed download request.
func (s *S3Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (port.PresignedRequest, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return port.PresignedRequest{}, fmt.Errorf("presign get object: %w", err)
	}
	return s.toPresigned(req, ttl), nil
}

func (s *S3Store) head(ctx context.Context, key string) (*s3.HeadObjectOutput, error) {
	out, err := s.objects.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("head object: %w", err)
	}
	return out, nil
}

func (s *S3Store) toPresigned(req *v4.PresignedHTTPRequest, ttl time.Duration) port.PresignedRequest {
	headers := http.Header{}
	for name, values := range req.SignedHeader {
		if strings.EqualFold(name, "host") {
			continue
		}
		for _, v := range values {
			headers.Add(name, v)
		}
	}
	return port.PresignedRequest{
		URL:       req.URL,
		Method:    req.Method,
		Headers:   headers,
		ExpiresAt: s.now().Add(ttl),
	}
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return bucket + "/" + strings.Join(segments, "/")
}

var _ port.ObjectStore = (*S3Store)(nil)
