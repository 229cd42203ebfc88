// Package egress is a thin call-through to the external recording service.
package egress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/meetwise/signaling/internal/core"
	"github.com/meetwise/signaling/internal/domain"
)

type Client struct {
	base string
	http *http.Client
}

var _ core.EgressClient = (*Client)(nil)

func NewClient(base string) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Start(ctx context.Context, room domain.RoomName, filename string) (string, error) {
	var resp struct {
		EgressID string `json:"egressId"`
	}
	err := c.post(ctx, "/egress/start", map[string]string{
		"roomName": string(room),
		"filename": filename,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("start egress: %w", err)
	}
	log.Info().Str("module", "egress").Str("room", string(room)).Str("egress_id", resp.EgressID).Msg("recording started")
	return resp.EgressID, nil
}

func (c *Client) Stop(ctx context.Context, handle string) (string, error) {
	var resp struct {
		Location string `json:"location"`
	}
	err := c.post(ctx, "/egress/stop", map[string]string{
		"egressId": handle,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("stop egress: %w", err)
	}
	log.Info().Str("module", "egress").Str("egress_id", handle).Str("location", resp.Location).Msg("recording stopped")
	return resp.Location, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("egress service returned %d", res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(out)
}
