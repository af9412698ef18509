// Package s3mirror mirrors output files to an S3 bucket.
package s3mirror

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Putter is the subset of *s3.Client used by Mirror.
type Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Mirror uploads files under a local root to bucket/prefix, keeping their
// relative paths as object keys.
type Mirror struct {
	client Putter
	bucket string
	prefix string
	root   string
	logger *slog.Logger
}

// New loads the default AWS configuration and returns a mirror for bucket.
func New(ctx context.Context, bucket, prefix, root string, logger *slog.Logger) (*Mirror, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewWithClient(s3.NewFromConfig(cfg), bucket, prefix, root, logger), nil
}

// NewWithClient returns a mirror using an existing client.
func NewWithClient(client Putter, bucket, prefix, root string, logger *slog.Logger) *Mirror {
	return &Mirror{client: client, bucket: bucket, prefix: prefix, root: root, logger: logger}
}

// Key returns the object key for a local file path.
func (m *Mirror) Key(localPath string) (string, error) {
	rel, err := filepath.Rel(m.root, localPath)
	if err != nil {
		return "", fmt.Errorf("relative path for %s: %w", localPath, err)
	}
	return path.Join(m.prefix, filepath.ToSlash(rel)), nil
}

// Upload puts each file and returns the keys written. It stops at the first
// failure.
func (m *Mirror) Upload(ctx context.Context, paths ...string) ([]string, error) {
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		key, err := m.Key(p)
		if err != nil {
			return keys, err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return keys, fmt.Errorf("read %s: %w", p, err)
		}

		contentType := mime.TypeByExtension(filepath.Ext(p))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(m.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
		if err != nil {
			return keys, fmt.Errorf("put s3://%s/%s: %w", m.bucket, key, err)
		}
		m.logger.Debug("mirrored file", "path", p, "key", key, "bytes", len(data))
		keys = append(keys, key)
	}
	return keys, nil
}
