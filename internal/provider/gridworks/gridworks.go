package gridworks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vnmchuo/billing-gateway/internal/provider"
)

type GridworksProvider struct {
	apiKey  string
	baseURL string
}

// Gridworks wraps everything in a "data" envelope and reports durations in
// whole minutes against an RFC3339 interval start.
type gridworksResponse struct {
	Data gridworksData `json:"data"`
}

type gridworksData struct {
	Intervals []gridworksInterval `json:"intervals"`
}

type gridworksInterval struct {
	Start   string `json:"start"`
	Band    string `json:"band"`
	Minutes int    `json:"minutes"`
}

func New(apiKey, baseURL string) provider.Provider {
	return &GridworksProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
	}
}

func (p *GridworksProvider) Name() string {
	return "gridworks"
}

func (p *GridworksProvider) FetchUsage(ctx context.Context, accountID string, start, end time.Time) (*provider.UsageReport, error) {
	body, status, err := p.fetchRaw(ctx, accountID, start, end)
	if err != nil {
		return nil, &provider.TransientError{Err: err}
	}
	if status == http.StatusTooManyRequests {
		return nil, &provider.TransientError{RateLimited: true, Err: fmt.Errorf("gridworks returned status 429")}
	}
	if status != http.StatusOK {
		return nil, &provider.PermanentError{Provider: p.Name(), Status: status, Message: string(body)}
	}
	return p.parse(accountID, body)
}

func (p *GridworksProvider) fetchRaw(ctx context.Context, accountID string, start, end time.Time) ([]byte, int, error) {
	url := fmt.Sprintf("%s/usage?account=%s&start=%s&end=%s",
		p.baseURL, accountID, start.Format(time.RFC3339), end.Format(time.RFC3339))
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, 0, err
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

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

func (p *GridworksProvider) parse(accountID string, body []byte) (*provider.UsageReport, error) {
	var gwResp gridworksResponse
	if err := json.Unmarshal(body, &gwResp); err != nil {
		return nil, &provider.PermanentError{Provider: p.Name(), Message: fmt.Sprintf("malformed payload: %v", err)}
	}

	report := &provider.UsageReport{
		AccountID: accountID,
		Provider:  p.Name(),
	}
	for _, iv := range gwResp.Data.Intervals {
		start, err := time.Parse(time.RFC3339, iv.Start)
		if err != nil {
			return nil, &provider.PermanentError{Provider: p.Name(), Message: fmt.Sprintf("bad interval start %q: %v", iv.Start, err)}
		}
		if iv.Minutes < 0 {
			return nil, &provider.PermanentError{Provider: p.Name(), Message: fmt.Sprintf("negative minutes %d at %s", iv.Minutes, iv.Start)}
		}
		report.Data = append(report.Data, provider.UsageDatum{
			Date:          start.UTC().Truncate(24 * time.Hour),
			Category:      mapBand(iv.Band),
			DurationHours: float64(iv.Minutes) / 60.0,
		})
	}
	return report, nil
}

func mapBand(s string) provider.TariffCategory {
	switch s {
	case "peak":
		return provider.CategoryPeak
	case "shoulder":
		return provider.CategoryShoulder
	case "off-peak":
		return provider.CategoryOffPeak
	}
	return provider.TariffCategory(s)
}
