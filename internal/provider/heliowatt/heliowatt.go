package heliowatt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/vnmchuo/billing-gateway/internal/provider"
)

const dayLayout = "02/01/2006"

type HeliowattProvider struct {
	apiKey  string
	baseURL string
}

// Heliowatt's export endpoint returns a bare JSON array and encodes every
// numeric field as a string.
type heliowattRow struct {
	Day       string `json:"day"`
	RateClass string `json:"rate_class"`
	Duration  string `json:"duration"`
}

func New(apiKey, baseURL string) provider.Provider {
	return &HeliowattProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
	}
}

func (p *HeliowattProvider) Name() string {
	return "heliowatt"
}

func (p *HeliowattProvider) FetchUsage(ctx context.Context, accountID string, start, end time.Time) (*provider.UsageReport, error) {
	body, status, err := p.fetchRaw(ctx, accountID, start, end)
	if err != nil {
		return nil, &provider.TransientError{Err: err}
	}
	if status == http.StatusTooManyRequests {
		return nil, &provider.TransientError{RateLimited: true, Err: fmt.Errorf("heliowatt returned status 429")}
	}
	if status != http.StatusOK {
		return nil, &provider.PermanentError{Provider: p.Name(), Status: status, Message: string(body)}
	}
	return p.parse(accountID, body)
}

func (p *HeliowattProvider) fetchRaw(ctx context.Context, accountID string, start, end time.Time) ([]byte, int, error) {
	url := fmt.Sprintf("%s/usage.json?customer=%s&from=%s&to=%s",
		p.baseURL, accountID, start.Format(dayLayout), end.Format(dayLayout))
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, 0, err
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Heliowatt-Token", p.apiKey)

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func (p *HeliowattProvider) parse(accountID string, body []byte) (*provider.UsageReport, error) {
	var rows []heliowattRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &provider.PermanentError{Provider: p.Name(), Message: fmt.Sprintf("malformed payload: %v", err)}
	}

	report := &provider.UsageReport{
		AccountID: accountID,
		Provider:  p.Name(),
	}
	for _, row := range rows {
		date, err := time.Parse(dayLayout, row.Day)
		if err != nil {
			return nil, &provider.PermanentError{Provider: p.Name(), Message: fmt.Sprintf("bad day %q: %v", row.Day, err)}
		}
		hours, err := strconv.ParseFloat(row.Duration, 64)
		if err != nil {
			return nil, &provider.PermanentError{Provider: p.Name(), Message: fmt.Sprintf("bad duration %q on %s: %v", row.Duration, row.Day, err)}
		}
		if hours < 0 {
			return nil, &provider.PermanentError{Provider: p.Name(), Message: fmt.Sprintf("negative duration %q on %s", row.Duration, row.Day)}
		}
		report.Data = append(report.Data, provider.UsageDatum{
			Date:          date,
			Category:      mapRateClass(row.RateClass),
			DurationHours: hours,
		})
	}
	return report, nil
}

func mapRateClass(s string) provider.TariffCategory {
	switch s {
	case "peak":
		return provider.CategoryPeak
	case "shoulder":
		return provider.CategoryShoulder
	case "off_peak":
		return provider.CategoryOffPeak
	}
	return provider.TariffCategory(s)
}
