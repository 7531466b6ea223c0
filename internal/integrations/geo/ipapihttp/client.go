package ipapihttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/qrmint/scantrack/internal/models"
)

// Client ходит в ip-api-совместимый сервис геолокации.
// Формат ответа: {"status":"success","country":...,"city":...,"lat":...,"lon":...}.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://ip-api.com"
	}
	return &Client{
		baseURL: baseURL,
		httpc: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type ipapiResp struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Country string  `json:"country"`
	City    string  `json:"city"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (c *Client) Locate(ctx context.Context, ip string) (models.Location, error) {
	// Локальные/пустые адреса резолвить бессмысленно.
	if ip == "" || ip == "unknown" || isPrivate(ip) {
		return models.UnknownLocation(), nil
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return models.UnknownLocation(), errors.Wrap(err, "parse base url")
	}
	u.Path = "/json/" + ip
	q := u.Query()
	q.Set("fields", "status,message,country,city,lat,lon")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.UnknownLocation(), errors.Wrap(err, "new request")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return models.UnknownLocation(), errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return models.UnknownLocation(), fmt.Errorf("geo provider http %d", resp.StatusCode)
	}

	var r ipapiResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return models.UnknownLocation(), errors.Wrap(err, "decode")
	}
	if r.Status != "success" {
		return models.UnknownLocation(), fmt.Errorf("geo provider status=%s message=%s", r.Status, r.Message)
	}

	loc := models.Location{
		Country:   r.Country,
		City:      r.City,
		Latitude:  r.Lat,
		Longitude: r.Lon,
	}
	if loc.Country == "" {
		loc.Country = models.UnknownValue
	}
	if loc.City == "" {
		loc.City = models.UnknownValue
	}
	return loc, nil
}

func isPrivate(ip string) bool {
	return strings.HasPrefix(ip, "10.") ||
		strings.HasPrefix(ip, "192.168.") ||
		strings.HasPrefix(ip, "172.16.") ||
		strings.HasPrefix(ip, "127.") ||
		ip == "::1"
}
