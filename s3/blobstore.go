// Package s3 implements wikidigest.BlobStore on S3-compatible object storage.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/fwojciec/wikidigest"
)

// Object metadata keys. S3 lowercases user metadata names.
const (
	metaContentHash   = "content-hash"
	metaOriginalName  = "original-filename"
	metaVersionMarker = "version-marker"
)

// Config holds the S3 connection settings.
type Config struct {
	// Bucket is required.
	Bucket string
	// Prefix is prepended to every key.
	Prefix string
	// Region uses the default chain when empty.
	Region string
	// Endpoint selects an S3-compatible provider and forces path-style
	// addressing.
	Endpoint string
	// PublicURL replaces the computed object URL prefix, for buckets served
	// behind a CDN.
	PublicURL string
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return wikidigest.Errorf(wikidigest.EINVALID, "S3 bucket is required")
	}
	return nil
}

// API is the subset of the S3 client the store uses.
type API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var _ API = (*s3.Client)(nil)

// Ensure BlobStore implements wikidigest.BlobStore at compile time.
var _ wikidigest.BlobStore = (*BlobStore)(nil)

// BlobStore keeps artifacts as objects and their metadata as object
// metadata.
type BlobStore struct {
	api    API
	cfg    Config
	prefix string
}

// Open loads AWS configuration from the default credential chain and
// returns a store for cfg.
func Open(ctx context.Context, cfg Config) (*BlobStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = awsConfig.Region
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
			o.UsePathStyle = true
		})
	}

	return NewBlobStore(s3.NewFromConfig(awsConfig, s3Opts...), cfg), nil
}

// NewBlobStore creates a new BlobStore on an existing client.
func NewBlobStore(api API, cfg Config) *BlobStore {
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &BlobStore{api: api, cfg: cfg, prefix: prefix}
}

func (s *BlobStore) objectKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", wikidigest.Errorf(wikidigest.EINVALID, "invalid key %q", key)
	}
	return s.prefix + key, nil
}

func (s *BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.head(ctx, key)
	if wikidigest.ErrorCode(err) == wikidigest.ENOTFOUND {
		return false, nil
	}
	return err == nil, err
}

func (s *BlobStore) Metadata(ctx context.Context, key string) (*wikidigest.ArtifactMetadata, error) {
	out, err := s.head(ctx, key)
	if err != nil {
		return nil, err
	}
	return decodeMetadata(out.Metadata), nil
}

func (s *BlobStore) head(ctx context.Context, key string) (*s3.HeadObjectOutput, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return nil, err
	}
	out, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, objectError(err, key)
	}
	return out, nil
}

func (s *BlobStore) Put(ctx context.Context, key string, data []byte, meta wikidigest.ArtifactMetadata) (string, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return "", err
	}
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(wikidigest.ContentType(key)),
		Metadata:      encodeMetadata(meta),
	})
	if err != nil {
		return "", objectError(err, key)
	}
	return s.URL(key), nil
}

// SetMetadata copies the object onto itself with replaced metadata, which
// leaves its bytes in place.
func (s *BlobStore) SetMetadata(ctx context.Context, key string, meta wikidigest.ArtifactMetadata) error {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}
	_, err = s.api.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(s.cfg.Bucket),
		Key:               aws.String(objectKey),
		CopySource:        aws.String(s.cfg.Bucket + "/" + escapeKey(objectKey)),
		ContentType:       aws.String(wikidigest.ContentType(key)),
		Metadata:          encodeMetadata(meta),
		MetadataDirective: types.MetadataDirectiveReplace,
	})
	if err != nil {
		return objectError(err, key)
	}
	return nil
}

// escapeKey URL-encodes each segment of an object key for CopySource.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return nil, err
	}
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, objectError(err, key)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *BlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.Bucket),
		Prefix: aws.String(s.prefix + prefix),
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, objectError(err, prefix)
		}
		for _, obj := range page.Contents {
			keys = append(keys, strings.TrimPrefix(aws.ToString(obj.Key), s.prefix))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// URL returns the public URL prefix plus the key, or the virtual-hosted
// (or path-style, for custom endpoints) object URL.
func (s *BlobStore) URL(key string) string {
	objectKey := s.prefix + key
	switch {
	case s.cfg.PublicURL != "":
		return strings.TrimRight(s.cfg.PublicURL, "/") + "/" + objectKey
	case s.cfg.Endpoint != "":
		return strings.TrimRight(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket + "/" + objectKey
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, objectKey)
	}
}

func encodeMetadata(meta wikidigest.ArtifactMetadata) map[string]string {
	m := map[string]string{metaContentHash: meta.ContentHash}
	if meta.OriginalFilename != "" {
		m[metaOriginalName] = url.PathEscape(meta.OriginalFilename)
	}
	if meta.VersionMarker != "" {
		m[metaVersionMarker] = meta.VersionMarker
	}
	return m
}

func decodeMetadata(m map[string]string) *wikidigest.ArtifactMetadata {
	name := m[metaOriginalName]
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return &wikidigest.ArtifactMetadata{
		ContentHash:      m[metaContentHash],
		OriginalFilename: name,
		VersionMarker:    m[metaVersionMarker],
	}
}

// objectError maps S3 failures to application error codes.
func objectError(err error, key string) error {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return wikidigest.Errorf(wikidigest.ENOTFOUND, "artifact %q not found", key)
	}

	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		return wikidigest.Errorf(wikidigest.StatusCode(re.HTTPStatusCode()), "s3 %q: %v", key, err)
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "SlowDown", "Throttling", "ServiceUnavailable", "InternalError", "RequestTimeout":
			return wikidigest.Errorf(wikidigest.EUNAVAILABLE, "s3 %q: %s", key, ae.ErrorMessage())
		}
	}
	return fmt.Errorf("s3 %q: %w", key, err)
}
