// Package soda fetches Chicago traffic-crash datasets from the Socrata
// Open Data API.
package soda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// ErrUnknownDataset is returned for a dataset name other than "crashes" or
// "people".
var ErrUnknownDataset = errors.New("soda: dataset must be \"crashes\" or \"people\"")

// Dataset is one of the city of Chicago traffic datasets.
type Dataset struct {
	Name     string
	Code     string
	RawTable string
}

var (
	Crashes = Dataset{Name: "crashes", Code: "85ca-t3if", RawTable: "crashes_raw"}
	People  = Dataset{Name: "people", Code: "u6pd-qa9d", RawTable: "people_raw"}
)

// ParseDataset maps a dataset name to its Dataset.
func ParseDataset(name string) (Dataset, error) {
	switch name {
	case Crashes.Name:
		return Crashes, nil
	case People.Name:
		return People, nil
	default:
		return Dataset{}, fmt.Errorf("%w: got %q", ErrUnknownDataset, name)
	}
}

// Record is one row of a dataset as decoded from JSON.
type Record = map[string]any

// Client pages through SODA resources.
type Client struct {
	baseURL  string
	appToken string
	pageSize int
	http     *http.Client
	logger   *zap.Logger
}

// MaxPageSize is the largest $limit a SODA endpoint honours. A larger
// limit yields a short first page, which would end paging early.
const MaxPageSize = 50000

// NewClient creates a client for the given SODA domain. A domain with a
// scheme (e.g. an httptest server URL) is used as is, otherwise https is
// assumed.
func NewClient(domain, appToken string, pageSize int, timeout time.Duration, logger *zap.Logger) *Client {
	base := domain
	if u, err := url.Parse(domain); err != nil || u.Scheme == "" {
		base = "https://" + domain
	}
	if pageSize <= 0 {
		pageSize = MaxPageSize
		logger.Warn("page size is zero or negative, defaulting to the maximum.", zap.Int("page_size", pageSize))
	}
	if pageSize > MaxPageSize {
		logger.Warn("page size above the server cap, clamping.",
			zap.Int("requested", pageSize),
			zap.Int("page_size", MaxPageSize))
		pageSize = MaxPageSize
	}
	return &Client{
		baseURL:  base,
		appToken: appToken,
		pageSize: pageSize,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// FetchAll downloads every record of the dataset, one page at a time,
// until a page comes back shorter than the page size.
func (c *Client) FetchAll(ctx context.Context, ds Dataset) ([]Record, error) {
	var all []Record
	for offset := 0; ; offset += c.pageSize {
		page, err := c.fetchPage(ctx, ds, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		c.logger.Debug("fetched page",
			zap.String("dataset", ds.Name),
			zap.Int("offset", offset),
			zap.Int("count", len(page)))
		if len(page) < c.pageSize {
			return all, nil
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, ds Dataset, offset int) ([]Record, error) {
	q := url.Values{}
	q.Set("$limit", strconv.Itoa(c.pageSize))
	q.Set("$offset", strconv.Itoa(offset))
	q.Set("$order", ":id")
	endpoint := fmt.Sprintf("%s/resource/%s.json?%s", c.baseURL, ds.Code, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.appToken != "" {
		req.Header.Set("X-App-Token", c.appToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s offset %d: %w", ds.Code, offset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("get %s offset %d: status %d: %s", ds.Code, offset, resp.StatusCode, body)
	}

	var page []Record
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode %s offset %d: %w", ds.Code, offset, err)
	}
	return page, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}
