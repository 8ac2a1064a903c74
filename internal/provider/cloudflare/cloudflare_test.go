package cloudflare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	cf "github.com/cloudflare/cloudflare-go"

	"github.com/opsfolk/manifest-dns-sync/internal/metrics"
	"github.com/opsfolk/manifest-dns-sync/internal/provider"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New("test-token", 2, metrics.New(false), cf.BaseURL(server.URL))
	if err != nil {
		t.Fatal(err)
	}
	return client, server
}

func TestRecordsPaginatesUntilTotalPages(t *testing.T) {
	pages := map[string][]map[string]any{
		"1": {
			{"id": "1", "type": "A", "name": "app.example.com", "content": "1.2.3.4", "ttl": 300, "proxied": true},
			{"id": "2", "type": "TXT", "name": "_verify.example.com", "content": "token", "ttl": 3600, "comment": "ownership"},
		},
		"2": {
			{"id": "3", "type": "MX", "name": "example.com", "content": "mail.example.com", "ttl": 300, "priority": 10},
			{"id": "4", "type": "CNAME", "name": "www.example.com", "content": "app.example.com", "ttl": 300, "proxied": false},
		},
	}

	var requestedPages []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/zones/zone1/dns_records" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("Unexpected auth header %q", auth)
		}
		page := r.URL.Query().Get("page")
		requestedPages = append(requestedPages, page)

		json.NewEncoder(w).Encode(map[string]any{
			"success":  true,
			"errors":   []any{},
			"messages": []any{},
			"result":   pages[page],
			"result_info": map[string]any{
				"page":        mustAtoi(page),
				"per_page":    2,
				"count":       2,
				"total_count": 4,
				"total_pages": 2,
			},
		})
	})

	client, _ := newTestClient(t, handler)
	records, err := client.Records(context.Background(), "zone1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(requestedPages) != 2 || requestedPages[0] != "1" || requestedPages[1] != "2" {
		t.Errorf("Page cursor mismatch: %v", requestedPages)
	}

	// The MX record is outside the allow-list and must be invisible.
	if len(records) != 3 {
		t.Fatalf("Records mismatch: got %d, want 3", len(records))
	}
	if records[0].ID != "1" || records[0].Proxied == nil || !*records[0].Proxied {
		t.Errorf("First record mismatch: %+v", records[0])
	}
	if records[1].Comment != "ownership" {
		t.Errorf("Comment not carried: %+v", records[1])
	}
	if records[2].Type != "CNAME" {
		t.Errorf("Expected CNAME last, got %+v", records[2])
	}
	for _, r := range records {
		if r.Type == "MX" {
			t.Error("MX record leaked through the allow-list")
		}
	}
}

func TestRecordsFailedPageAbortsFetch(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("page") == "1" {
			json.NewEncoder(w).Encode(map[string]any{
				"success":  true,
				"errors":   []any{},
				"messages": []any{},
				"result": []map[string]any{
					{"id": "1", "type": "A", "name": "app.example.com", "content": "1.2.3.4", "ttl": 300},
				},
				"result_info": map[string]any{
					"page": 1, "per_page": 2, "count": 1, "total_count": 3, "total_pages": 2,
				},
			})
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"errors":  []map[string]any{{"code": 10000, "message": "zone unavailable"}},
		})
	})

	client, _ := newTestClient(t, handler)
	records, err := client.Records(context.Background(), "zone1")
	if err == nil {
		t.Fatal("Expected error but got none")
	}
	var fetchErr *provider.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected *provider.FetchError, got %T", err)
	}
	if records != nil {
		t.Error("No partial live state may be returned on a failed fetch")
	}
}

func TestCreatePayloadGating(t *testing.T) {
	var payloads []map[string]any
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Unexpected method %q", r.Method)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		payloads = append(payloads, body)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"errors":  []any{},
			"result":  map[string]any{"id": "new", "type": body["type"], "name": body["name"]},
		})
	})

	client, _ := newTestClient(t, handler)
	ctx := context.Background()

	proxied := true
	if err := client.Create(ctx, "zone1", provider.Record{
		Type: "A", Name: "app.example.com", Content: "1.2.3.4", TTL: 300, Proxied: &proxied,
	}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := client.Create(ctx, "zone1", provider.Record{
		Type: "TXT", Name: "_verify.example.com", Content: "token", TTL: 3600,
	}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(payloads) != 2 {
		t.Fatalf("Expected 2 payloads, got %d", len(payloads))
	}
	if v, ok := payloads[0]["proxied"]; !ok || v != true {
		t.Errorf("A record payload should carry proxied, got %v", payloads[0])
	}
	if _, ok := payloads[1]["proxied"]; ok {
		t.Errorf("TXT record payload must not carry proxied, got %v", payloads[1])
	}
	if _, ok := payloads[1]["priority"]; ok {
		t.Errorf("Absent priority must not be sent, got %v", payloads[1])
	}
}

func TestUpdateAndDeleteAddressById(t *testing.T) {
	var paths []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"errors":  []any{},
			"result":  map[string]any{"id": "rec1"},
		})
	})

	client, _ := newTestClient(t, handler)
	ctx := context.Background()

	if err := client.Update(ctx, "zone1", "rec1", provider.Record{
		Type: "A", Name: "app.example.com", Content: "5.6.7.8", TTL: 300, Comment: "moved",
	}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := client.Delete(ctx, "zone1", "rec1"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []string{
		"PUT /zones/zone1/dns_records/rec1",
		"DELETE /zones/zone1/dns_records/rec1",
	}
	if len(paths) != len(want) {
		t.Fatalf("Paths mismatch: got %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("Path %d mismatch: got %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestNewRequiresToken(t *testing.T) {
	if _, err := New("", 100, metrics.New(false)); err == nil {
		t.Fatal("Expected error for empty token")
	}
}

func mustAtoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		panic(fmt.Sprintf("bad page %q", s))
	}
	return n
}
