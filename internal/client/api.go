// Package client implements the CarKeeper front-end logic: a typed HTTP
// client for the backend API, a state store holding everything a UI renders,
// and on-disk session persistence.
//
// The store is deliberately UI-agnostic — the CLI drives it today, and a
// different front end could drive the same store without touching this
// package.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sakif/carkeeper/internal/model"
	"github.com/sakif/carkeeper/internal/service"
)

// API is the backend surface the store depends on. Client implements it
// over HTTP; tests implement it in memory.
type API interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (*service.AuthResult, error)
	Vehicles(ctx context.Context, userID string) ([]model.Vehicle, error)
	CreateVehicle(ctx context.Context, vehicle *model.Vehicle) (*model.Vehicle, error)
	UpdateVehicle(ctx context.Context, vehicle *model.Vehicle) (*model.Vehicle, error)
	DeleteVehicle(ctx context.Context, id string) error
	Summary(ctx context.Context, userID string) (*model.Summary, error)
	Records(ctx context.Context, vehicleID string) ([]model.Record, error)
	CreateRecord(ctx context.Context, record *model.Record) (*model.Record, error)
	UpdateRecord(ctx context.Context, record *model.Record) (*model.Record, error)
	DeleteRecord(ctx context.Context, id string) error
}

// Client is the HTTP implementation of API.
//
// FAILURE SEMANTICS (deliberately simple, matching the UI contract):
// every failure — backend offline, non-2xx status, malformed body — comes
// back as a plain error whose message is fit to show the user in a banner.
// There is no retry, request deduplication, or cancellation here; retry
// exists only in the extraction pipeline.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// NewClient creates a Client for the given base URL. The URL comes from
// configuration — pointing the client at a different deployment must never
// require a rebuild.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken sets the bearer token sent on subsequent requests. An empty
// string clears it.
func (c *Client) SetToken(token string) {
	c.token = token
}

var _ API = (*Client)(nil)

// do runs one request/response cycle: marshal body, send, decode into out.
// Non-2xx responses are turned into an error carrying the server's message.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("client: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("Network error: backend may be offline")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return apiError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("client: decoding response: %w", err)
		}
	}

	return nil
}

// apiError extracts the server's error message from a non-2xx response.
// The API contract says error bodies carry {"error": ..., "message": ...};
// we prefer the human-readable message and degrade gracefully when the body
// is empty or not JSON (proxies tend to produce those).
func apiError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Message != "" {
			return fmt.Errorf("%s", body.Message)
		}
		if body.Error != "" {
			return fmt.Errorf("%s", body.Error)
		}
	}
	return fmt.Errorf("Request failed (%s)", resp.Status)
}

func (c *Client) Register(ctx context.Context, username, password string) error {
	creds := map[string]string{"username": username, "password": password}
	return c.do(ctx, http.MethodPost, "/register", creds, nil)
}

func (c *Client) Login(ctx context.Context, username, password string) (*service.AuthResult, error) {
	creds := map[string]string{"username": username, "password": password}
	var result service.AuthResult
	if err := c.do(ctx, http.MethodPost, "/login", creds, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Vehicles(ctx context.Context, userID string) ([]model.Vehicle, error) {
	var vehicles []model.Vehicle
	path := "/vehicles?user_id=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (c *Client) CreateVehicle(ctx context.Context, vehicle *model.Vehicle) (*model.Vehicle, error) {
	var created model.Vehicle
	if err := c.do(ctx, http.MethodPost, "/vehicles", vehicle, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateVehicle(ctx context.Context, vehicle *model.Vehicle) (*model.Vehicle, error) {
	var updated model.Vehicle
	if err := c.do(ctx, http.MethodPut, "/vehicles/"+vehicle.ID, vehicle, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteVehicle(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/vehicles/"+id, nil, nil)
}

func (c *Client) Summary(ctx context.Context, userID string) (*model.Summary, error) {
	var summary model.Summary
	if err := c.do(ctx, http.MethodGet, "/summary/"+url.PathEscape(userID), nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) Records(ctx context.Context, vehicleID string) ([]model.Record, error) {
	var records []model.Record
	path := "/records?vehicle_id=" + url.QueryEscape(vehicleID)
	if err := c.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) CreateRecord(ctx context.Context, record *model.Record) (*model.Record, error) {
	var created model.Record
	if err := c.do(ctx, http.MethodPost, "/records", record, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateRecord(ctx context.Context, record *model.Record) (*model.Record, error) {
	var updated model.Record
	if err := c.do(ctx, http.MethodPut, "/records/"+record.ID, record, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteRecord(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/records/"+id, nil, nil)
}
