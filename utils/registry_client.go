package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Registry lookup outcomes. Unreachable is transient and safe to retry;
// unknown is terminal for the scan.
var (
	ErrRegistryUnreachable = errors.New("manufacturing registry unreachable")
	ErrUnknownUnit         = errors.New("unit not found in manufacturing registry")
)

// UnitRecord is the result of a successful existence check. ProductName is
// nil when the unit exists but no name could be resolved; that is not a
// failure, only an unresolved-name condition.
type UnitRecord struct {
	UnitID      string
	ProductName *string
	MatchedBy   string
}

// registryUnit mirrors the registry's unit payload. The registry is owned by
// another team; only the fields the pipeline needs are decoded.
type registryUnit struct {
	Serial      string `json:"serial"`
	PrintedURL  string `json:"printed_url"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
}

type registryProduct struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RegistryClient validates unit identifiers against the external
// manufacturing registry. The registry may be slow, down, or internally
// inconsistent; those are expected operating conditions here, not bugs.
type RegistryClient struct {
	baseURL string
	client  *http.Client
}

// NewRegistryClient builds a client for the registry at baseURL.
func NewRegistryClient(baseURL string, timeout time.Duration) *RegistryClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RegistryClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// lookupStrategy is one named way of finding a unit. Strategies run in a
// fixed order and each attempt's outcome is logged, so fallback behavior is
// visible in ops logs rather than implied by code order.
type lookupStrategy struct {
	name string
	fn   func(ctx context.Context, unitID string) (*registryUnit, error)
}

// Validate confirms the identifier names a real manufactured unit and
// resolves its product name when possible.
//
// Strategy order: exact match on the serial field first, then a scan for the
// identifier inside the stored printed URL (some registry records carry the
// full warranty link instead of the bare serial). Negative results are never
// cached: a unit missing today may appear tomorrow while registry data
// propagates.
func (c *RegistryClient) Validate(ctx context.Context, unitID string) (*UnitRecord, error) {
	strategies := []lookupStrategy{
		{name: "serial-exact", fn: c.lookupBySerial},
		{name: "printed-url-contains", fn: c.lookupByPrintedURL},
	}

	for _, s := range strategies {
		unit, err := s.fn(ctx, unitID)
		if err != nil {
			if Sugar != nil {
				Sugar.Warnw("registry lookup failed", "strategy", s.name, "unit_id", unitID, "error", err)
			}
			return nil, err
		}
		if unit == nil {
			if Sugar != nil {
				Sugar.Debugw("registry lookup miss", "strategy", s.name, "unit_id", unitID)
			}
			continue
		}
		if Sugar != nil {
			Sugar.Infow("registry lookup hit", "strategy", s.name, "unit_id", unitID)
		}
		return &UnitRecord{
			UnitID:      unitID,
			ProductName: c.resolveProductName(ctx, unit),
			MatchedBy:   s.name,
		}, nil
	}

	return nil, ErrUnknownUnit
}

func (c *RegistryClient) lookupBySerial(ctx context.Context, unitID string) (*registryUnit, error) {
	var unit registryUnit
	found, err := c.getJSON(ctx, fmt.Sprintf("%s/api/units/%s", c.baseURL, url.PathEscape(unitID)), &unit)
	if err != nil || !found {
		return nil, err
	}
	return &unit, nil
}

func (c *RegistryClient) lookupByPrintedURL(ctx context.Context, unitID string) (*registryUnit, error) {
	var body struct {
		Items []registryUnit `json:"items"`
	}
	endpoint := fmt.Sprintf("%s/api/units/search?printed_url=%s", c.baseURL, url.QueryEscape(unitID))
	found, err := c.getJSON(ctx, endpoint, &body)
	if err != nil || !found {
		return nil, err
	}
	if len(body.Items) == 0 {
		return nil, nil
	}
	return &body.Items[0], nil
}

// resolveProductName tries to attach a human-readable product name to a
// matched unit. A miss here never fails the scan; the unit record simply
// carries no name. Resolved names are cached (positive results only).
func (c *RegistryClient) resolveProductName(ctx context.Context, unit *registryUnit) *string {
	if unit.ProductName != "" {
		name := unit.ProductName
		return &name
	}
	if unit.ProductID == "" {
		return nil
	}

	cacheKey := "registry:product:" + unit.ProductID
	if cached, ok := CacheGetString(cacheKey); ok && cached != "" {
		return &cached
	}

	var product registryProduct
	found, err := c.getJSON(ctx, fmt.Sprintf("%s/api/products/%s", c.baseURL, url.PathEscape(unit.ProductID)), &product)
	if err != nil || !found || product.Name == "" {
		if Sugar != nil {
			Sugar.Infow("product name unresolved", "product_id", unit.ProductID, "error", err)
		}
		return nil
	}
	CacheSetString(cacheKey, product.Name, time.Hour)
	return &product.Name
}

// getJSON performs a GET and decodes a JSON body. Returns found=false on 404,
// ErrRegistryUnreachable on transport failures and server errors.
func (c *RegistryClient) getJSON(ctx context.Context, endpoint string, out interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRegistryUnreachable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRegistryUnreachable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("%w: status %d", ErrRegistryUnreachable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("%w: decode: %v", ErrRegistryUnreachable, err)
	}
	return true, nil
}
