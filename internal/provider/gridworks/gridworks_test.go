package gridworks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vnmchuo/billing-gateway/internal/provider"
)

func TestFetchUsage_Mock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Expected bearer token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"intervals":[
			{"start":"2025-06-15T07:30:00Z","band":"peak","minutes":210},
			{"start":"2025-06-15T22:00:00Z","band":"off-peak","minutes":90}
		]}}`))
	}))
	defer server.Close()

	p := &GridworksProvider{apiKey: "test-key", baseURL: server.URL}
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	report, err := p.FetchUsage(context.Background(), "acc-2", start, end)
	if err != nil {
		t.Fatalf("FetchUsage failed: %v", err)
	}
	if len(report.Data) != 2 {
		t.Fatalf("Expected 2 data, got %d", len(report.Data))
	}
	if report.Data[0].DurationHours != 3.5 {
		t.Errorf("Expected 210 minutes = 3.5 hours, got %v", report.Data[0].DurationHours)
	}
	if want := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC); !report.Data[0].Date.Equal(want) {
		t.Errorf("Expected interval start truncated to %s, got %s", want, report.Data[0].Date)
	}
	if report.Data[1].Category != provider.CategoryOffPeak {
		t.Errorf("Expected off-peak mapped to offpeak, got %s", report.Data[1].Category)
	}
}

func TestFetchUsage_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := &GridworksProvider{apiKey: "test-key", baseURL: server.URL}

	_, err := p.FetchUsage(context.Background(), "acc-2", time.Now().AddDate(0, -1, 0), time.Now())
	var transient *provider.TransientError
	if !errors.As(err, &transient) || !transient.RateLimited {
		t.Fatalf("Expected rate-limited TransientError, got %v", err)
	}
}

func TestFetchUsage_BadIntervalStartIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"intervals":[{"start":"yesterday-ish","band":"peak","minutes":60}]}}`))
	}))
	defer server.Close()

	p := &GridworksProvider{apiKey: "test-key", baseURL: server.URL}

	_, err := p.FetchUsage(context.Background(), "acc-2", time.Now().AddDate(0, -1, 0), time.Now())
	var permanent *provider.PermanentError
	if !errors.As(err, &permanent) {
		t.Fatalf("Expected PermanentError, got %v", err)
	}
}

func TestName(t *testing.T) {
	p := New("key", "http://example.test")
	if p.Name() != "gridworks" {
		t.Errorf("Expected 'gridworks', got %s", p.Name())
	}
}
