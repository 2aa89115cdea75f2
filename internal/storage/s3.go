package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput) error {
		_, err := c.DeleteObject(ctx, in)
		return err
	}
	newUUID = uuid.NewString
	now     = time.Now
)

var ErrInvalidKey = errors.New("invalid storage key")

// KeyPrefix namespaces every object this service writes.
const KeyPrefix = "work-updates/"

type PresignedRequest struct {
	Key       string            `json:"key"`
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers,omitempty"`
	ExpiresAt time.Time         `json:"expires_at"`
}

type S3Config struct {
	Bucket     string
	Region     string
	Endpoint   string
	AccessKey  string
	SecretKey  string
	PresignTTL time.Duration
}

// S3Store hands out presigned URLs; object bytes never pass through the API.
type S3Store struct {
	cfg     S3Config
	client  *s3.Client
	presign *s3.PresignClient
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = 15 * time.Minute
	}
	return &S3Store{cfg: cfg, client: client, presign: s3.NewPresignClient(client)}, nil
}

// NewStorageKey builds a collision-free key under KeyPrefix that keeps the
// original file extension.
func NewStorageKey(fileName string) string {
	d := now().UTC()
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(fileName, `\`, "/"))))
	if len(ext) > 10 {
		ext = ""
	}
	return fmt.Sprintf("%s%04d/%02d/%02d/%s%s", KeyPrefix, d.Year(), d.Month(), d.Day(), newUUID(), ext)
}

// ValidKey rejects keys outside KeyPrefix and path traversal.
func ValidKey(key string) bool {
	return strings.HasPrefix(key, KeyPrefix) && !strings.Contains(key, "..") && len(key) <= 512
}

func (s *S3Store) PresignPut(ctx context.Context, key, contentType string, size int64) (PresignedRequest, error) {
	if !ValidKey(key) {
		return PresignedRequest{}, ErrInvalidKey
	}
	in := &s3.PutObjectInput{Bucket: aws.String(s.cfg.Bucket), Key: aws.String(key)}
	headers := map[string]string{}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
		headers["Content-Type"] = contentType
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}
	req, err := presignPutObject(s.presign, ctx, in, s3.WithPresignExpires(s.cfg.PresignTTL))
	if err != nil {
		return PresignedRequest{}, fmt.Errorf("presign put: %w", err)
	}
	return PresignedRequest{Key: key, URL: req.URL, Method: req.Method, Headers: headers, ExpiresAt: now().Add(s.cfg.PresignTTL)}, nil
}

func (s *S3Store) PresignGet(ctx context.Context, key, fileName string) (PresignedRequest, error) {
	if !ValidKey(key) {
		return PresignedRequest{}, ErrInvalidKey
	}
	in := &s3.GetObjectInput{Bucket: aws.String(s.cfg.Bucket), Key: aws.String(key)}
	if fileName != "" {
		in.ResponseContentDisposition = aws.String(fmt.Sprintf("attachment; filename=%q", path.Base(fileName)))
	}
	req, err := presignGetObject(s.presign, ctx, in, s3.WithPresignExpires(s.cfg.PresignTTL))
	if err != nil {
		return PresignedRequest{}, fmt.Errorf("presign get: %w", err)
	}
	return PresignedRequest{Key: key, URL: req.URL, Method: req.Method, ExpiresAt: now().Add(s.cfg.PresignTTL)}, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	if err := deleteObject(s.client, ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.cfg.Bucket), Key: aws.String(key)}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
