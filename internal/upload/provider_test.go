package upload

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// MockProvider implements Provider for testing
type MockProvider struct {
	name       string
	configured bool
	uploadErr  error
	uploads    []mockUpload
}

type mockUpload struct {
	content    string
	size       int64
	remotePath string
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

func (m *MockProvider) Name() string { return m.name }

func (m *MockProvider) Configure(config map[string]any) error {
	m.configured = true
	return nil
}

func (m *MockProvider) Check(ctx context.Context) error { return nil }

func (m *MockProvider) Upload(ctx context.Context, reader io.Reader, size int64, remotePath string) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.uploads = append(m.uploads, mockUpload{content: string(content), size: size, remotePath: remotePath})
	return nil
}

func TestProviderRegistry(t *testing.T) {
	testProviderName := "test-provider"
	var created *MockProvider
	RegisterProvider(testProviderName, func() Provider {
		created = NewMockProvider(testProviderName)
		return created
	})

	provider, err := NewProvider(testProviderName, map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("Failed to create registered provider: %v", err)
	}
	if provider.Name() != testProviderName {
		t.Errorf("Expected provider name %s, got %s", testProviderName, provider.Name())
	}
	if !created.configured {
		t.Error("NewProvider should configure the provider")
	}

	_, err = NewProvider("unknown-provider", nil)
	if err == nil {
		t.Fatal("Expected error for unknown provider, got nil")
	}
	if !strings.Contains(err.Error(), "minio") {
		t.Errorf("Expected available providers in error, got %q", err.Error())
	}
}

func TestMinioProviderName(t *testing.T) {
	provider := NewMinioProvider()
	if provider.Name() != "minio" {
		t.Errorf("Expected provider name 'minio', got %s", provider.Name())
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		name         string
		endpoint     string
		secure       bool
		wantEndpoint string
		wantSecure   bool
		wantErr      bool
	}{
		{name: "http protocol", endpoint: "http://localhost:9000", secure: true, wantEndpoint: "localhost:9000", wantSecure: false},
		{name: "https protocol", endpoint: "https://s3.amazonaws.com", secure: false, wantEndpoint: "s3.amazonaws.com", wantSecure: true},
		{name: "no protocol keeps secure=true", endpoint: "localhost:9000", secure: true, wantEndpoint: "localhost:9000", wantSecure: true},
		{name: "no protocol keeps secure=false", endpoint: "localhost:9000", secure: false, wantEndpoint: "localhost:9000", wantSecure: false},
		{name: "protocol only", endpoint: "http://", wantErr: true},
		{name: "unsupported scheme", endpoint: "ftp://host", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint, secure, err := parseEndpoint(tt.endpoint, tt.secure)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if endpoint != tt.wantEndpoint || secure != tt.wantSecure {
				t.Errorf("parseEndpoint() = (%q, %v), want (%q, %v)", endpoint, secure, tt.wantEndpoint, tt.wantSecure)
			}
		})
	}
}

func TestMinioProviderConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
		errMsg string
	}{
		{name: "missing endpoint", config: map[string]any{}, errMsg: "endpoint is required"},
		{
			name:   "missing access_key",
			config: map[string]any{"endpoint": "localhost:9000"},
			errMsg: "access_key is required",
		},
		{
			name:   "missing secret_key",
			config: map[string]any{"endpoint": "localhost:9000", "access_key": "minioadmin"},
			errMsg: "secret_key is required",
		},
		{
			name: "missing bucket",
			config: map[string]any{
				"endpoint":   "localhost:9000",
				"access_key": "minioadmin",
				"secret_key": "minioadmin",
			},
			errMsg: "bucket is required",
		},
		{
			name: "invalid endpoint URL",
			config: map[string]any{
				"endpoint":   "http://",
				"access_key": "minioadmin",
				"secret_key": "minioadmin",
				"bucket":     "failures",
			},
			errMsg: "invalid endpoint URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewMinioProvider().Configure(tt.config)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Expected error containing %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestMinioProviderUnconfigured(t *testing.T) {
	provider := NewMinioProvider()
	ctx := context.Background()

	if err := provider.Check(ctx); err == nil {
		t.Error("Expected Check to fail on an unconfigured provider")
	}
	if err := provider.Upload(ctx, strings.NewReader("x"), 1, "a.txt"); err == nil {
		t.Error("Expected Upload to fail on an unconfigured provider")
	}
}

func TestMinioObjectName(t *testing.T) {
	tests := []struct {
		prefix string
		remote string
		want   string
	}{
		{"", "run/mismatch_0001.txt", "run/mismatch_0001.txt"},
		{"tandem", "run/mismatch_0001.txt", "tandem/run/mismatch_0001.txt"},
		{"tandem/", "run/timeout_0002.txt", "tandem/run/timeout_0002.txt"},
	}
	for _, tt := range tests {
		m := &MinioProvider{prefix: tt.prefix}
		if got := m.objectName(tt.remote); got != tt.want {
			t.Errorf("objectName(%q) with prefix %q = %q, want %q", tt.remote, tt.prefix, got, tt.want)
		}
	}
}

type objectStore struct {
	mu      sync.Mutex
	objects map[string]string
}

func (s *objectStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodHead:
		if r.URL.Path == "/failures" || r.URL.Path == "/failures/" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		s.objects[r.URL.Path] = string(body)
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestMinioProviderAgainstFakeServer(t *testing.T) {
	store := &objectStore{objects: make(map[string]string)}
	server := httptest.NewServer(store)
	defer server.Close()

	provider := NewMinioProvider()
	err := provider.Configure(map[string]any{
		"endpoint":   server.URL,
		"access_key": "minioadmin",
		"secret_key": "minioadmin",
		"bucket":     "failures",
		"prefix":     "tandem",
	})
	if err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	ctx := context.Background()
	if err := provider.Check(ctx); err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	content := "Random lines #3\nabc def"
	if err := provider.Upload(ctx, strings.NewReader(content), int64(len(content)), "run-1/mismatch_0001.txt"); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	body, ok := store.objects["/failures/tandem/run-1/mismatch_0001.txt"]
	if !ok {
		t.Fatalf("object not stored, have %v", store.objects)
	}
	if !strings.Contains(body, content) {
		t.Errorf("stored body %q does not contain %q", body, content)
	}
}
