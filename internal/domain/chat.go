package domain

import (
	"strconv"
	"strings"
)

// ChatRequest is the inbound payload for one conversation turn.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// ChatResponse is the reply for one turn. At most one of Dealers or
// Tires is populated, never both.
type ChatResponse struct {
	SessionID string   `json:"sessionId"`
	Message   string   `json:"message"`
	Dealers   []Dealer `json:"dealers,omitempty"`
	Tires     []Tire   `json:"tires,omitempty"`
}

// Dealer mirrors the upstream dealer-search record. Field names follow
// the upstream API wire format (Turkish column names).
type Dealer struct {
	Name1         string `json:"unvan1"`
	Name2         string `json:"unvan2,omitempty"`
	City          string `json:"il,omitempty"`
	District      string `json:"ilce,omitempty"`
	Address1      string `json:"adres1,omitempty"`
	Address2      string `json:"adres2,omitempty"`
	Phone         string `json:"telefon1,omitempty"`
	Email         string `json:"email,omitempty"`
	Lat           string `json:"enlem,omitempty"`
	Lon           string `json:"boylam,omitempty"`
	Distance      string `json:"distance,omitempty"`
	GoogleMapsURL string `json:"googleMapsUrl,omitempty"`
}

// FullName joins the two name parts.
func (d *Dealer) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(d.Name1) + " " + strings.TrimSpace(d.Name2))
}

// FullAddress joins the address parts with the district and city.
func (d *Dealer) FullAddress() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{d.Address1, d.Address2, d.District, d.City} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Latitude parses the upstream coordinate, tolerating comma decimals.
func (d *Dealer) Latitude() (float64, bool) {
	return parseCommaDecimal(d.Lat)
}

// Longitude parses the upstream coordinate, tolerating comma decimals.
func (d *Dealer) Longitude() (float64, bool) {
	return parseCommaDecimal(d.Lon)
}

// DistanceKm parses the upstream distance, tolerating comma decimals.
func (d *Dealer) DistanceKm() (float64, bool) {
	return parseCommaDecimal(d.Distance)
}

func parseCommaDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// DealerSearchResponse is the upstream dealer-search envelope.
type DealerSearchResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Dealers []Dealer `json:"data"`
}

// Tire mirrors the upstream tire-search record.
type Tire struct {
	Content        string `json:"content"`
	Description    string `json:"description,omitempty"`
	AvailableSizes string `json:"availableSizes,omitempty"`
	ProductURL     string `json:"productUrl,omitempty"`
	Season         string `json:"season,omitempty"`
}

// Name returns the display name of the tire.
func (t *Tire) Name() string {
	return strings.TrimSpace(t.Content)
}

// ProductURLs splits the comma-joined URL field.
func (t *Tire) ProductURLs() []string {
	if strings.TrimSpace(t.ProductURL) == "" {
		return nil
	}
	raw := strings.Split(t.ProductURL, ",")
	urls := make([]string, 0, len(raw))
	for _, u := range raw {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// TireSearchResponse is the upstream tire-search envelope.
type TireSearchResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Tires   []Tire `json:"data"`
}

// BrandModelValidation is the upstream brand/model consistency check.
type BrandModelValidation struct {
	IsMismatch bool   `json:"isMismatch"`
	Message    string `json:"message"`
}
