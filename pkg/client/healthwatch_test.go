package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/juju/errors"

	"github.com/HatiCode/healthwatch/pkg/storage"
)

func TestNew(t *testing.T) {
	client := New("http://localhost:8080")
	if client == nil {
		t.Fatal("New returned nil")
	}
	if client.baseURL != "http://localhost:8080" {
		t.Errorf("baseURL = %q, want %q", client.baseURL, "http://localhost:8080")
	}
	if client.httpClient.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", client.httpClient.Timeout)
	}
}

func TestNewWithTimeout(t *testing.T) {
	timeout := 10 * time.Second
	client := NewWithTimeout("http://localhost:8080", timeout)
	if client.httpClient.Timeout != timeout {
		t.Errorf("timeout = %v, want %v", client.httpClient.Timeout, timeout)
	}
}

func TestClient_Readings(t *testing.T) {
	var capturedURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedURL = r.URL.String()
		w.Header().Set("Content-Type", "application/json")
		readings := []storage.Reading{
			{ID: "r1", EntityKey: "Indonesia", MetricName: "Deaths", Value: 120, Category: "mortality"},
		}
		if err := json.NewEncoder(w).Encode(readings); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	client := New(server.URL)
	readings, err := client.Readings(context.Background(), "Indonesia")
	if err != nil {
		t.Fatalf("Readings() error = %v", err)
	}
	if capturedURL != "/api/who/health?country=Indonesia" {
		t.Errorf("URL = %q, want %q", capturedURL, "/api/who/health?country=Indonesia")
	}
	if len(readings) != 1 {
		t.Fatalf("len(readings) = %d, want 1", len(readings))
	}
	if readings[0].EntityKey != "Indonesia" || readings[0].Value != 120 {
		t.Errorf("reading = %+v", readings[0])
	}
}

func TestClient_Updates(t *testing.T) {
	var capturedURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedURL = r.URL.String()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"u1","country":"Malaysia","indicatorName":"Deaths","value":10,"change":2,"timestamp":1700000000}]`))
	}))
	defer server.Close()

	updates, err := New(server.URL).Updates(context.Background(), 20)
	if err != nil {
		t.Fatalf("Updates() error = %v", err)
	}
	if capturedURL != "/api/who/updates?limit=20" {
		t.Errorf("URL = %q", capturedURL)
	}
	if len(updates) != 1 || updates[0].Delta != 2 {
		t.Errorf("updates = %+v", updates)
	}
}

func TestClient_UpdateStock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s, want PATCH", r.Method)
		}
		if r.URL.Path != "/api/medicines/OBT-001" {
			t.Errorf("path = %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"event":"sold"`) || !strings.Contains(string(body), `"quantity":3`) {
			t.Errorf("body = %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"medicineId":"OBT-001","stock":47,"lastUpdate":{"event":"sold","quantity":3,"stock":47}}`))
	}))
	defer server.Close()

	res, err := New(server.URL).UpdateStock(context.Background(), "OBT-001", "sold", 3)
	if err != nil {
		t.Fatalf("UpdateStock() error = %v", err)
	}
	if res.Stock != 47 || res.LastUpdate.Event != "sold" {
		t.Errorf("result = %+v", res)
	}
}

func TestClient_UpdateStock_EmptyID(t *testing.T) {
	_, err := New("http://localhost:8080").UpdateStock(context.Background(), "", "sold", 1)
	if err == nil {
		t.Fatal("Expected error for empty id")
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"not found", http.StatusNotFound, `{"error":"medicine \"X\" not found"}`, func(err error) bool { return errors.Is(err, errors.NotFound) }},
		{"bad request", http.StatusBadRequest, `{"error":"insufficient stock"}`, func(err error) bool {
			return errors.Is(err, errors.NotValid) && strings.Contains(err.Error(), "insufficient stock")
		}},
		{"server error", http.StatusInternalServerError, ``, func(err error) bool { return err != nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := New(server.URL).UpdateStock(context.Background(), "X", "sold", 1)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !tt.check(err) {
				t.Errorf("unexpected error classification: %v", err)
			}
		})
	}
}

func TestClient_InvalidURL(t *testing.T) {
	_, err := New("://invalid-url").Medicines(context.Background())
	if err == nil {
		t.Fatal("Expected error for invalid URL")
	}
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	_, err := NewWithTimeout(server.URL, 10*time.Millisecond).Medicines(context.Background())
	if err == nil {
		t.Fatal("Expected timeout error")
	}
}

func TestClient_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("invalid json"))
	}))
	defer server.Close()

	if _, err := New(server.URL).Medicines(context.Background()); err == nil {
		t.Fatal("Expected error for invalid JSON")
	}
}
