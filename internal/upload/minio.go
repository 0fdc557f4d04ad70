package upload

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioProvider implements the Provider interface for MinIO/S3 storage
type MinioProvider struct {
	client      *minio.Client
	bucket      string
	prefix      string
	contentType string
}

func NewMinioProvider() *MinioProvider {
	return &MinioProvider{}
}

func (m *MinioProvider) Name() string {
	return "minio"
}

// Configure builds the MinIO client. An http:// or https:// scheme on the
// endpoint overrides the secure option.
func (m *MinioProvider) Configure(config map[string]any) error {
	endpoint, ok := getStringValue(config, "endpoint")
	if !ok {
		return fmt.Errorf("minio: endpoint is required")
	}

	accessKey, ok := getStringValue(config, "access_key")
	if !ok {
		return fmt.Errorf("minio: access_key is required")
	}

	secretKey, ok := getStringValue(config, "secret_key")
	if !ok {
		return fmt.Errorf("minio: secret_key is required")
	}

	bucket, ok := getStringValue(config, "bucket")
	if !ok {
		return fmt.Errorf("minio: bucket is required")
	}

	secure := getBoolValue(config, "secure", true)
	host, secure, err := parseEndpoint(endpoint, secure)
	if err != nil {
		return err
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
		Region: getStringValueWithDefault(config, "region", "us-east-1"),
	})
	if err != nil {
		return fmt.Errorf("minio: failed to create client: %w", err)
	}

	m.client = client
	m.bucket = bucket
	m.prefix = getStringValueWithDefault(config, "prefix", "")
	m.contentType = getStringValueWithDefault(config, "content_type", "text/plain")
	return nil
}

// Check confirms the configured bucket exists.
func (m *MinioProvider) Check(ctx context.Context) error {
	if m.client == nil {
		return fmt.Errorf("minio: provider not configured")
	}
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("minio: failed to check bucket existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("minio: bucket %s does not exist", m.bucket)
	}
	return nil
}

func (m *MinioProvider) Upload(ctx context.Context, reader io.Reader, size int64, remotePath string) error {
	if m.client == nil {
		return fmt.Errorf("minio: provider not configured")
	}

	objectName := m.objectName(remotePath)
	_, err := m.client.PutObject(ctx, m.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: m.contentType,
	})
	if err != nil {
		return fmt.Errorf("minio: failed to upload to %s: %w", objectName, err)
	}
	return nil
}

func (m *MinioProvider) objectName(remotePath string) string {
	if m.prefix == "" {
		return remotePath
	}
	return path.Join(m.prefix, remotePath)
}

func parseEndpoint(endpoint string, secure bool) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		return endpoint, secure, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", false, fmt.Errorf("minio: invalid endpoint URL %q", endpoint)
	}
	switch u.Scheme {
	case "http":
		return u.Host, false, nil
	case "https":
		return u.Host, true, nil
	default:
		return "", false, fmt.Errorf("minio: invalid endpoint URL %q: unsupported scheme %s", endpoint, u.Scheme)
	}
}

func getStringValue(config map[string]any, key string) (string, bool) {
	if val, ok := config[key]; ok {
		if str, ok := val.(string); ok && str != "" {
			return str, true
		}
	}
	return "", false
}

func getStringValueWithDefault(config map[string]any, key, defaultValue string) string {
	if val, ok := getStringValue(config, key); ok {
		return val
	}
	return defaultValue
}

func getBoolValue(config map[string]any, key string, defaultValue bool) bool {
	if val, ok := config[key]; ok {
		switch v := val.(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
	}
	return defaultValue
}
