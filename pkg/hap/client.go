// Package hap is a client for the HAP HTTP API a Homebridge bridge exposes
// when it runs in insecure mode.
package hap

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/brutella/hap/characteristic"
	"github.com/urmzd/hbconsole/pkg/accessory"
)

// statusConnectionAuthorizationRequired is the HAP status for a missing or
// wrong pin.
const statusConnectionAuthorizationRequired = 470

// Config locates a bridge.
type Config struct {
	Host     string // defaults to localhost
	Port     int
	Pin      string // NNN-NN-NNN, sent as the Authorization header
	Name     string
	Username string
}

// Client implements accessory.Client against one bridge.
type Client struct {
	baseURL  string
	pin      string
	instance accessory.Instance
	client   *http.Client
}

var _ accessory.Client = (*Client)(nil)

// New creates a client for the bridge described by cfg. httpClient may be
// nil.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	return &Client{
		baseURL: "http://" + host + ":" + strconv.Itoa(cfg.Port),
		pin:     cfg.Pin,
		instance: accessory.Instance{
			Name:      cfg.Name,
			IPAddress: host,
			Port:      cfg.Port,
			Username:  cfg.Username,
		},
		client: httpClient,
	}
}

// NewWithBaseURL creates a client against an explicit base URL.
func NewWithBaseURL(baseURL string, cfg Config, httpClient *http.Client) *Client {
	c := New(cfg, httpClient)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type accessoriesResponse struct {
	Accessories []hapAccessory `json:"accessories"`
}

type hapAccessory struct {
	AID      int          `json:"aid"`
	Services []hapService `json:"services"`
}

type hapService struct {
	IID             int                 `json:"iid"`
	Type            string              `json:"type"`
	Characteristics []hapCharacteristic `json:"characteristics"`
}

type hapCharacteristic struct {
	AID         int      `json:"aid,omitempty"`
	IID         int      `json:"iid"`
	Type        string   `json:"type,omitempty"`
	Value       any      `json:"value,omitempty"`
	Perms       []string `json:"perms,omitempty"`
	Format      string   `json:"format,omitempty"`
	Description string   `json:"description,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	MaxValue    *float64 `json:"maxValue,omitempty"`
	MinValue    *float64 `json:"minValue,omitempty"`
	MinStep     *float64 `json:"minStep,omitempty"`
	Status      int      `json:"status,omitempty"`
}

type characteristicsBody struct {
	Characteristics []hapCharacteristic `json:"characteristics"`
}

// writeRequest is the PUT /characteristics entry. Value is always sent,
// including false and 0.
type writeRequest struct {
	AID   int `json:"aid"`
	IID   int `json:"iid"`
	Value any `json:"value"`
}

// ListServices implements accessory.Client.
func (c *Client) ListServices(ctx context.Context) ([]accessory.Service, error) {
	body, err := c.request(ctx, http.MethodGet, "/accessories", nil, nil)
	if err != nil {
		return nil, err
	}

	var resp accessoriesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode accessories: %v", accessory.ErrUnavailable, err)
	}

	services := make([]accessory.Service, 0)
	for _, acc := range resp.Accessories {
		info := accessoryInformation(acc)
		for _, svc := range acc.Services {
			short := shortType(svc.Type)
			if hiddenServices[short] {
				continue
			}
			services = append(services, c.buildService(acc.AID, svc, short, info))
		}
	}
	return services, nil
}

func accessoryInformation(acc hapAccessory) map[string]any {
	info := make(map[string]any)
	for _, svc := range acc.Services {
		if !hiddenServices[shortType(svc.Type)] {
			continue
		}
		for _, ch := range svc.Characteristics {
			if ch.Value == nil {
				continue
			}
			info[characteristicName(shortType(ch.Type))] = ch.Value
		}
	}
	return info
}

func (c *Client) buildService(aid int, svc hapService, short string, info map[string]any) accessory.Service {
	typeName := serviceName(short)

	out := accessory.Service{
		AID:                  aid,
		IID:                  svc.IID,
		UUID:                 fullUUID(short),
		Type:                 typeName,
		HumanType:            humanize(typeName),
		Characteristics:      make([]accessory.Characteristic, 0, len(svc.Characteristics)),
		AccessoryInformation: info,
		Values:               make(map[string]any),
		Instance:             c.instance,
	}

	for _, ch := range svc.Characteristics {
		chShort := shortType(ch.Type)
		chName := characteristicName(chShort)
		if chShort == characteristic.TypeName {
			if name, ok := ch.Value.(string); ok {
				out.ServiceName = name
			}
		}

		out.Characteristics = append(out.Characteristics, accessory.Characteristic{
			AID:         aid,
			IID:         ch.IID,
			UUID:        fullUUID(chShort),
			Type:        chName,
			ServiceType: typeName,
			Description: ch.Description,
			Value:       ch.Value,
			Format:      ch.Format,
			Perms:       ch.Perms,
			Unit:        ch.Unit,
			MaxValue:    ch.MaxValue,
			MinValue:    ch.MinValue,
			MinStep:     ch.MinStep,
			CanRead:     slices.Contains(ch.Perms, characteristic.PermissionRead),
			CanWrite:    slices.Contains(ch.Perms, characteristic.PermissionWrite),
		})
		out.Values[chName] = ch.Value
	}

	if out.ServiceName == "" {
		if name, ok := info["Name"].(string); ok {
			out.ServiceName = name
		} else {
			out.ServiceName = out.HumanType
		}
	}
	for i := range out.Characteristics {
		out.Characteristics[i].ServiceName = out.ServiceName
	}

	sum := sha256.Sum256([]byte(c.instance.Username + strconv.Itoa(aid) + strconv.Itoa(svc.IID) + out.UUID))
	out.UniqueID = hex.EncodeToString(sum[:])

	return out
}

// RefreshCharacteristics implements accessory.Client.
func (c *Client) RefreshCharacteristics(ctx context.Context, svc *accessory.Service) error {
	if len(svc.Characteristics) == 0 {
		return nil
	}

	ids := make([]string, 0, len(svc.Characteristics))
	for _, ch := range svc.Characteristics {
		if ch.CanRead {
			ids = append(ids, strconv.Itoa(svc.AID)+"."+strconv.Itoa(ch.IID))
		}
	}
	if len(ids) == 0 {
		return nil
	}

	query := url.Values{}
	query.Set("id", strings.Join(ids, ","))
	body, err := c.request(ctx, http.MethodGet, "/characteristics", query, nil)
	if err != nil {
		return err
	}

	var resp characteristicsBody
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: decode characteristics: %v", accessory.ErrUnavailable, err)
	}

	if svc.Values == nil {
		svc.Values = make(map[string]any)
	}
	for _, fresh := range resp.Characteristics {
		if fresh.AID != svc.AID {
			continue
		}
		if ch := svc.Characteristic(fresh.IID); ch != nil {
			ch.Value = fresh.Value
			svc.Values[ch.Type] = fresh.Value
		}
	}
	return nil
}

// SetCharacteristic implements accessory.Client.
func (c *Client) SetCharacteristic(ctx context.Context, svc *accessory.Service, iid int, value any) error {
	ch := svc.Characteristic(iid)
	if ch == nil {
		return fmt.Errorf("%w: characteristic %d.%d", accessory.ErrNotFound, svc.AID, iid)
	}

	payload := struct {
		Characteristics []writeRequest `json:"characteristics"`
	}{
		Characteristics: []writeRequest{{AID: svc.AID, IID: iid, Value: value}},
	}
	body, err := c.request(ctx, http.MethodPut, "/characteristics", nil, payload)
	if err != nil {
		return err
	}

	// 207 Multi-Status carries per-characteristic HAP status codes
	if len(body) > 0 {
		var resp characteristicsBody
		if err := json.Unmarshal(body, &resp); err == nil {
			for _, r := range resp.Characteristics {
				if r.Status == statusConnectionAuthorizationRequired {
					return accessory.ErrAuthRequired
				}
				if r.Status != 0 {
					return fmt.Errorf("%w: characteristic %d.%d status %d", accessory.ErrUnavailable, r.AID, r.IID, r.Status)
				}
			}
		}
	}

	ch.Value = value
	if svc.Values != nil {
		svc.Values[ch.Type] = value
	}
	return nil
}

func (c *Client) request(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		// HAP expects literal commas and dots in the id list
		u += "?" + strings.ReplaceAll(query.Encode(), "%2C", ",")
	}

	var reqBody io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/hap+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/hap+json")
	}
	if c.pin != "" {
		req.Header.Set("Authorization", c.pin)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", accessory.ErrUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", accessory.ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == statusConnectionAuthorizationRequired:
		return nil, accessory.ErrAuthRequired
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: %s %s returned %d", accessory.ErrUnavailable, method, path, resp.StatusCode)
	}
	return payload, nil
}
