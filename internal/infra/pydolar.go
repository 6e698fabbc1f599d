package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRespuestaPyDolar is returned when the provider answers without a BCV price.
var ErrRespuestaPyDolar = errors.New("pydolar: respuesta invalida")

// PyDolarResponse is the subset of the PyDolar /dollar payload we read.
type PyDolarResponse struct {
	Monitors struct {
		BCV *struct {
			Price decimal.Decimal `json:"price"`
		} `json:"bcv"`
		DolarToday *struct {
			Price decimal.Decimal `json:"price"`
		} `json:"dolartoday"`
	} `json:"monitors"`
}

// TasaExterna is a rate fetched from the provider.
type TasaExterna struct {
	BCV      decimal.Decimal
	Paralelo *decimal.Decimal
}

// PyDolarClient fetches the official USD→VES rate over HTTP.
type PyDolarClient struct {
	url        string
	httpClient *http.Client
}

func NewPyDolarClient(url string) *PyDolarClient {
	return &PyDolarClient{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// ObtenerTasa performs one GET against the provider.
func (c *PyDolarClient) ObtenerTasa(ctx context.Context) (*TasaExterna, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("pydolar: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pydolar: unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pydolar: returned %d", resp.StatusCode)
	}

	var body PyDolarResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("pydolar: decode response: %w", err)
	}
	if body.Monitors.BCV == nil || !body.Monitors.BCV.Price.IsPositive() {
		return nil, ErrRespuestaPyDolar
	}

	out := &TasaExterna{BCV: body.Monitors.BCV.Price}
	if body.Monitors.DolarToday != nil && body.Monitors.DolarToday.Price.IsPositive() {
		p := body.Monitors.DolarToday.Price
		out.Paralelo = &p
	}
	return out, nil
}
