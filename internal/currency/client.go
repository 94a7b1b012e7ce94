package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/subify/internal/models"
)

// DefaultBaseURL адрес публичного API курсов без авторизации.
const DefaultBaseURL = "https://api.exchangerate-api.com"

// Client получает курсы из exchangerate-api.com (v4).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт новый клиент источника курсов.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type latestResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// FetchRates запрашивает курсы относительно base.
func (c *Client) FetchRates(ctx context.Context, base models.Currency) (map[models.Currency]decimal.Decimal, error) {
	const op = "currency.Client.FetchRates"

	url := fmt.Sprintf("%s/v4/latest/%s", c.baseURL, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("%s: empty rates", op)
	}
	if body.Base != "" && !strings.EqualFold(body.Base, string(base)) {
		return nil, fmt.Errorf("%s: base mismatch: want %s, got %s", op, base, body.Base)
	}

	rates := make(map[models.Currency]decimal.Decimal, len(body.Rates))
	for code, rate := range body.Rates {
		rates[models.Currency(strings.ToUpper(code))] = rate
	}
	return rates, nil
}
