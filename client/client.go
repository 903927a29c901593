// Package client is a Go client for the katmannames server, covering both the
// JSON API and the websocket protocol. The server's own end-to-end tests use
// it, and it is enough to build a terminal player on.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"

	katmannames "github.com/katmannames/katmannames"
)

type Client struct {
	scheme string
	addr   string
	http   *http.Client
}

func New(scheme, addr string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %v", err)
	}

	return &Client{
		scheme: scheme,
		addr:   addr,
		http:   &http.Client{Jar: jar},
	}, nil
}

// Rooms lists the joinable lobbies.
func (c *Client) Rooms() ([]katmannames.LobbySummary, error) {
	req, err := http.NewRequest(http.MethodGet, c.scheme+"://"+c.addr+"/api/rooms", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to form request: %w", err)
	}

	var resp []katmannames.LobbySummary
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("failed to load rooms: %w", err)
	}
	return resp, nil
}

// Results loads up to limit archived games, most recent first.
func (c *Client) Results(limit int) ([]*katmannames.GameResult, error) {
	url := fmt.Sprintf("%s://%s/api/results?limit=%d", c.scheme, c.addr, limit)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to form request: %w", err)
	}

	var resp []*katmannames.GameResult
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}
	return resp, nil
}

// SaveIdentity stores a seat in the server-issued reconnect cookie, which
// lives in this client's cookie jar.
func (c *Client) SaveIdentity(code katmannames.RoomCode, player katmannames.PlayerID) error {
	body := struct {
		RoomCode katmannames.RoomCode `json:"roomCode"`
		PlayerID katmannames.PlayerID `json:"playerId"`
	}{code, player}

	req, err := http.NewRequest(http.MethodPost, c.scheme+"://"+c.addr+"/api/identity", toBody(body))
	if err != nil {
		return fmt.Errorf("failed to form request: %w", err)
	}

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func toBody(v interface{}) io.Reader {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		// Only used with marshalable request types.
		panic(err)
	}
	return &buf
}
