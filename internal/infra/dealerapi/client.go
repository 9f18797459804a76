// Package dealerapi calls the upstream dealer and tire search service.
package dealerapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bitiz/tirebot-go/internal/domain"
	"github.com/bitiz/tirebot-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("dealerapi")

// Client is the upstream API client for dealer and tire lookups.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewClient creates a Client for the given base URL.
func NewClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cb:         cb,
		cfg:        cfg,
	}
}

// SearchByLocation finds dealers near a coordinate pair.
func (c *Client) SearchByLocation(ctx context.Context, lat, lon float64) (*domain.DealerSearchResponse, error) {
	ctx, span := tracer.Start(ctx, "DealerClient.SearchByLocation")
	defer span.End()
	span.SetAttributes(attribute.Float64("geo.lat", lat), attribute.Float64("geo.lon", lon))

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	return c.dealerSearch(ctx, "/SearchDealers", q)
}

// SearchByCityDistrict finds dealers by place names. District may be
// empty.
func (c *Client) SearchByCityDistrict(ctx context.Context, city, district string) (*domain.DealerSearchResponse, error) {
	ctx, span := tracer.Start(ctx, "DealerClient.SearchByCityDistrict")
	defer span.End()
	span.SetAttributes(attribute.String("geo.city", city))

	q := url.Values{}
	q.Set("city", city)
	if district != "" {
		q.Set("district", district)
	}
	return c.dealerSearch(ctx, "/SearchByLocation", q)
}

func (c *Client) dealerSearch(ctx context.Context, path string, q url.Values) (*domain.DealerSearchResponse, error) {
	var out domain.DealerSearchResponse
	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.get(ctx, path, q)
			if err != nil {
				return err
			}
			return json.Unmarshal(body, &out)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &out, nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "dealer-api", Err: err}
	}
	return result.(*domain.DealerSearchResponse), nil
}

// SearchTires finds tires for a vehicle. The upstream responds either
// with the success/message envelope or with a bare JSON array; both
// shapes are accepted.
func (c *Client) SearchTires(ctx context.Context, brand, model, year, season string) (*domain.TireSearchResponse, error) {
	ctx, span := tracer.Start(ctx, "DealerClient.SearchTires")
	defer span.End()
	span.SetAttributes(
		attribute.String("vehicle.brand", brand),
		attribute.String("vehicle.model", model),
	)

	q := url.Values{}
	q.Set("brand", brand)
	q.Set("model", model)
	q.Set("year", year)
	if season != "" {
		q.Set("season", season)
	}

	var out *domain.TireSearchResponse
	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.get(ctx, "/Search", q)
			if err != nil {
				return err
			}
			out, err = parseTireResponse(body)
			return err
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return out, nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "tire-api", Err: err}
	}
	return result.(*domain.TireSearchResponse), nil
}

// ValidateBrandModel asks the upstream whether the model belongs to the
// brand.
func (c *Client) ValidateBrandModel(ctx context.Context, brand, model string) (*domain.BrandModelValidation, error) {
	ctx, span := tracer.Start(ctx, "DealerClient.ValidateBrandModel")
	defer span.End()

	q := url.Values{}
	q.Set("brand", brand)
	q.Set("model", model)

	var out domain.BrandModelValidation
	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.get(ctx, "/ValidateBrandModel", q)
			if err != nil {
				return err
			}
			return json.Unmarshal(body, &out)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &out, nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "tire-api", Err: err}
	}
	return result.(*domain.BrandModelValidation), nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dealer API returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// parseTireResponse accepts both upstream shapes: the wrapped envelope
// and a bare array of tires.
func parseTireResponse(body []byte) (*domain.TireSearchResponse, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var tires []domain.Tire
		if err := json.Unmarshal(body, &tires); err != nil {
			return nil, &domain.ErrParse{Source: "tire-api", Err: err}
		}
		return &domain.TireSearchResponse{Success: true, Tires: tires}, nil
	}
	var out domain.TireSearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &domain.ErrParse{Source: "tire-api", Err: err}
	}
	return &out, nil
}
