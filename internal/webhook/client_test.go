package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zinc-sig/tandem/internal/output"
)

func testSummary() *output.Summary {
	return &output.Summary{
		RunID:       "run-1",
		TargetA:     output.Target{Path: "./reference"},
		TargetB:     output.Target{Path: "./candidate"},
		Trials:      10,
		TotalTrials: 10,
		Passed:      9,
		Mismatches:  1,
	}
}

func fastRetry(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries:   maxRetries,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestNewClient(t *testing.T) {
	config := &Config{
		URL:       "https://example.com/webhook",
		AuthType:  "bearer",
		AuthToken: "test-token",
	}

	client := NewClient(config, nil, nil)

	if client.config.Method != "POST" {
		t.Errorf("Expected default method to be POST, got %s", client.config.Method)
	}
	if client.config.Timeout != 30*time.Second {
		t.Errorf("Expected default timeout to be 30s, got %v", client.config.Timeout)
	}
	if client.retryConfig.MaxRetries != 3 {
		t.Errorf("Expected default max retries to be 3, got %d", client.retryConfig.MaxRetries)
	}
}

func TestClientSend_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST method, got %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected Content-Type application/json, got %s", r.Header.Get("Content-Type"))
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("Failed to read request body: %v", err)
		}

		var payload output.Summary
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("Failed to unmarshal payload: %v", err)
		}
		if payload.RunID != "run-1" || payload.Mismatches != 1 {
			t.Errorf("Unexpected payload: %+v", payload)
		}
		if payload.TargetB.Path != "./candidate" {
			t.Errorf("Expected target B ./candidate, got %s", payload.TargetB.Path)
		}

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(&Config{URL: server.URL, Timeout: 5 * time.Second}, DefaultRetryConfig(), nil)

	delivery, err := client.Send(context.Background(), testSummary())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if delivery.Attempts != 1 || delivery.StatusCode != http.StatusNoContent {
		t.Errorf("Unexpected delivery %+v", delivery)
	}
}

func TestClientSend_AuthHeaders(t *testing.T) {
	tests := []struct {
		name           string
		authType       string
		authToken      string
		expectedHeader string
		expectedValue  string
	}{
		{
			name:           "bearer auth",
			authType:       "bearer",
			authToken:      "test-token",
			expectedHeader: "Authorization",
			expectedValue:  "Bearer test-token",
		},
		{
			name:           "api-key auth",
			authType:       "api-key",
			authToken:      "api-key-value",
			expectedHeader: "X-API-Key",
			expectedValue:  "api-key-value",
		},
		{
			name:     "no auth",
			authType: "none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.expectedHeader != "" {
					if value := r.Header.Get(tt.expectedHeader); value != tt.expectedValue {
						t.Errorf("Expected %s header to be '%s', got '%s'",
							tt.expectedHeader, tt.expectedValue, value)
					}
				} else if r.Header.Get("Authorization") != "" || r.Header.Get("X-API-Key") != "" {
					t.Error("Expected no auth headers")
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			config := &Config{
				URL:       server.URL,
				AuthType:  tt.authType,
				AuthToken: tt.authToken,
				Timeout:   5 * time.Second,
			}

			client := NewClient(config, DefaultRetryConfig(), nil)
			if _, err := client.Send(context.Background(), testSummary()); err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestClientSend_HMACSignature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if got, want := r.Header.Get(SignatureHeader), Sign("s3cret", body); got != want {
			t.Errorf("Expected signature %s, got %s", want, got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(&Config{URL: server.URL, AuthType: "hmac", AuthToken: "s3cret"}, nil, nil)
	if _, err := client.Send(context.Background(), testSummary()); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestSign(t *testing.T) {
	// RFC 4231 test case 2.
	got := Sign("Jefe", []byte("what do ya want for nothing?"))
	want := "sha256=5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843"
	if got != want {
		t.Errorf("Sign() = %s, want %s", got, want)
	}
}

func TestClientSend_RetryOnFailure(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(&Config{URL: server.URL, Timeout: 10 * time.Second}, fastRetry(3), nil)

	delivery, err := client.Send(context.Background(), testSummary())
	if err != nil {
		t.Errorf("Expected successful send after retries, got error: %v", err)
	}
	if finalAttempts := atomic.LoadInt32(&attempts); finalAttempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", finalAttempts)
	}
	if delivery.Attempts != 3 {
		t.Errorf("Expected delivery to record 3 attempts, got %d", delivery.Attempts)
	}
}

func TestClientSend_NonRetryableStatus(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(&Config{URL: server.URL, Timeout: 5 * time.Second}, fastRetry(3), nil)

	delivery, err := client.Send(context.Background(), testSummary())
	if err == nil {
		t.Fatal("Expected error for non-retryable status")
	}
	if !strings.Contains(err.Error(), "status 400") {
		t.Errorf("Expected error to contain status 400, got: %v", err)
	}
	if finalAttempts := atomic.LoadInt32(&attempts); finalAttempts != 1 {
		t.Errorf("Expected 1 attempt (no retries for non-retryable status), got %d", finalAttempts)
	}
	if delivery.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected delivery status 400, got %d", delivery.StatusCode)
	}
}

func TestClientSend_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(&Config{URL: server.URL, Timeout: 100 * time.Millisecond}, &RetryConfig{MaxRetries: 0}, nil)

	_, err := client.Send(context.Background(), testSummary())
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if !strings.Contains(err.Error(), "timeout") && !strings.Contains(err.Error(), "deadline exceeded") {
		t.Errorf("Expected timeout/deadline error, got: %v", err)
	}
}

func TestClientSend_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	retryConfig := &RetryConfig{
		MaxRetries:   3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}
	client := NewClient(&Config{URL: server.URL, Timeout: 5 * time.Second}, retryConfig, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := client.Send(ctx, testSummary())
	if err == nil {
		t.Fatal("Expected context cancellation error")
	}
	if !strings.Contains(err.Error(), "context canceled") {
		t.Errorf("Expected context canceled error, got: %v", err)
	}
}

func TestClientSend_CustomHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Custom-Header") != "custom-value" {
			t.Errorf("Expected X-Custom-Header to be 'custom-value', got '%s'",
				r.Header.Get("X-Custom-Header"))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	config := &Config{
		URL:     server.URL,
		Method:  http.MethodPut,
		Headers: map[string]string{"X-Custom-Header": "custom-value"},
		Timeout: 5 * time.Second,
	}

	client := NewClient(config, nil, nil)
	if _, err := client.Send(context.Background(), testSummary()); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestClientSend_MaxRetriesExceeded(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(&Config{URL: server.URL, Timeout: 5 * time.Second}, fastRetry(2), nil)

	_, err := client.Send(context.Background(), testSummary())
	if err == nil {
		t.Fatal("Expected error after max retries")
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("Expected error message to mention attempts, got: %v", err)
	}
	if finalAttempts := atomic.LoadInt32(&attempts); finalAttempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", finalAttempts)
	}
}

func TestClientSend_RetryAfter(t *testing.T) {
	var (
		attempts int32
		first    time.Time
		second   time.Time
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			first = time.Now()
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		second = time.Now()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	retryConfig := &RetryConfig{
		MaxRetries:   1,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
	client := NewClient(&Config{URL: server.URL, Timeout: 10 * time.Second}, retryConfig, nil)

	if _, err := client.Send(context.Background(), testSummary()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if gap := second.Sub(first); gap < 900*time.Millisecond {
		t.Errorf("Expected retry to wait for Retry-After, waited %v", gap)
	}
}
