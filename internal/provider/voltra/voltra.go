package voltra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vnmchuo/billing-gateway/internal/provider"
)

const dateLayout = "2006-01-02"

type VoltraProvider struct {
	apiKey  string
	baseURL string
}

type voltraResponse struct {
	Readings []voltraReading `json:"readings"`
}

type voltraReading struct {
	Date       string  `json:"date"`
	Tariff     string  `json:"tariff"`
	UsageHours float64 `json:"usage_hours"`
}

func New(apiKey, baseURL string) provider.Provider {
	return &VoltraProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
	}
}

func (p *VoltraProvider) Name() string {
	return "voltra"
}

func (p *VoltraProvider) FetchUsage(ctx context.Context, accountID string, start, end time.Time) (*provider.UsageReport, error) {
	body, status, err := p.fetchRaw(ctx, accountID, start, end)
	if err != nil {
		return nil, &provider.TransientError{Err: err}
	}
	if status == http.StatusTooManyRequests {
		return nil, &provider.TransientError{RateLimited: true, Err: fmt.Errorf("voltra returned status 429")}
	}
	if status != http.StatusOK {
		return nil, &provider.PermanentError{Provider: p.Name(), Status: status, Message: string(body)}
	}
	return p.parse(accountID, body)
}

func (p *VoltraProvider) fetchRaw(ctx context.Context, accountID string, start, end time.Time) ([]byte, int, error) {
	url := fmt.Sprintf("%s/accounts/%s/usage?from=%s&to=%s",
		p.baseURL, accountID, start.Format(dateLayout), end.Format(dateLayout))
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, 0, err
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Api-Key", p.apiKey)

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

func (p *VoltraProvider) parse(accountID string, body []byte) (*provider.UsageReport, error) {
	var voltraResp voltraResponse
	if err := json.Unmarshal(body, &voltraResp); err != nil {
		return nil, &provider.PermanentError{Provider: p.Name(), Message: fmt.Sprintf("malformed payload: %v", err)}
	}

	report := &provider.UsageReport{
		AccountID: accountID,
		Provider:  p.Name(),
	}
	for _, r := range voltraResp.Readings {
		date, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			return nil, &provider.PermanentError{Provider: p.Name(), Message: fmt.Sprintf("bad reading date %q: %v", r.Date, err)}
		}
		if r.UsageHours < 0 {
			return nil, &provider.PermanentError{Provider: p.Name(), Message: fmt.Sprintf("negative usage_hours %v on %s", r.UsageHours, r.Date)}
		}
		report.Data = append(report.Data, provider.UsageDatum{
			Date:          date,
			Category:      mapTariff(r.Tariff),
			DurationHours: r.UsageHours,
		})
	}
	return report, nil
}

func mapTariff(s string) provider.TariffCategory {
	switch s {
	case "PEAK":
		return provider.CategoryPeak
	case "SHOULDER":
		return provider.CategoryShoulder
	case "OFF_PEAK":
		return provider.CategoryOffPeak
	}
	// Unknown bands are passed through so the calculation reports them
	// against the datum instead of dropping it here.
	return provider.TariffCategory(s)
}
