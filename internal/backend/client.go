package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"parking-reservation-backend/config"
	"parking-reservation-backend/internal/auth"
	"parking-reservation-backend/internal/booking"
)

const maxBodyBytes = 1 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Code)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Message)
}

// UserMessage returns a message suitable for showing to the user.
func (e *StatusError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Code {
	case http.StatusConflict:
		return "The spot is no longer available for this period."
	case http.StatusUnauthorized:
		return "Your session has expired. Please sign in again."
	case http.StatusForbidden:
		return "You are not allowed to make this reservation."
	}
	return ""
}

// Client talks to the reservation backend. The caller's bearer token is
// taken from the request context.
type Client struct {
	baseURL string
	client  *http.Client
	headers map[string]string
	logger  *zap.Logger
}

// NewClient creates a backend client.
func NewClient(cfg config.BackendConfig, logger *zap.Logger) *Client {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			logger.Warn("invalid proxy URL, backend client will not use a proxy",
				zap.String("proxy", cfg.HTTPProxy), zap.Error(err))
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		headers: cfg.Headers,
		logger:  logger,
	}
}

// FetchAvailability returns the slot grid of one spot on one day.
func (c *Client) FetchAvailability(ctx context.Context, spotID, day string) (booking.AvailabilityWindow, error) {
	var out booking.AvailabilityWindow
	if err := c.do(ctx, http.MethodPost, "/availability", availabilityRequest{SpotID: spotID, Day: day}, &out); err != nil {
		return booking.AvailabilityWindow{}, err
	}
	out.SpotID = spotID
	out.Day = day
	return out, nil
}

// SubmitReservation sends one reservation request.
func (c *Client) SubmitReservation(ctx context.Context, req booking.ReservationRequest) (*booking.ReservationResponse, error) {
	var out booking.ReservationResponse
	if err := c.do(ctx, http.MethodPost, "/reservations", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetReservation fetches a reservation by id.
func (c *Client) GetReservation(ctx context.Context, id string) (*Reservation, error) {
	var out Reservation
	if err := c.do(ctx, http.MethodGet, "/reservations/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelReservation asks the backend to cancel a reservation.
func (c *Client) CancelReservation(ctx context.Context, id string) (*Reservation, error) {
	var out Reservation
	if err := c.do(ctx, http.MethodPost, "/reservations/"+url.PathEscape(id)+"/cancel", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSpots returns every spot with its live status.
func (c *Client) ListSpots(ctx context.Context) ([]booking.Spot, error) {
	var out []booking.Spot
	if err := c.do(ctx, http.MethodGet, "/spots", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListVehicles returns the caller's vehicles.
func (c *Client) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	var out []Vehicle
	if err := c.do(ctx, http.MethodGet, "/vehicles", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateVehicle registers a vehicle for the caller.
func (c *Client) CreateVehicle(ctx context.Context, v Vehicle) (*Vehicle, error) {
	var out Vehicle
	if err := c.do(ctx, http.MethodPost, "/vehicles", v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListComplaints returns the complaints visible to the caller.
func (c *Client) ListComplaints(ctx context.Context) ([]Complaint, error) {
	var out []Complaint
	if err := c.do(ctx, http.MethodGet, "/complaints", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FileComplaint files an irregular-parking complaint.
func (c *Client) FileComplaint(ctx context.Context, complaint Complaint) (*Complaint, error) {
	var out Complaint
	if err := c.do(ctx, http.MethodPost, "/complaints", complaint, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", creds, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("login response carried no token")
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request payload: %w", err)
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if p, ok := auth.FromContext(ctx); ok && p.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("backend returned error status",
			zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode))
		return statusError(resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s %s response: %w", method, path, err)
	}
	return nil
}

func statusError(code int, raw []byte) *StatusError {
	se := &StatusError{Code: code}
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil {
		se.Message = eb.Message
		if se.Message == "" {
			se.Message = eb.Error
		}
	}
	return se
}
