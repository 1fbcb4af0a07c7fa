package obsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ForePull/internal/domain/models"
	drepo "ForePull/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements an ObservationStream backed by a WebSocket feed.
// The feed delivers frames of the form
// {"type":"observation","data":[{"s":<segment>,"v":<value>,"t":<unix ms>}]}.
type Client struct {
	apiKey         string
	websocketURL   string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	segments  []string
	conn      *websocket.Conn
	connected bool
}

// New creates a new WebSocket ObservationStream.
func New(apiKey, websocketURL string, reconnectDelay, pingInterval time.Duration) drepo.ObservationStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("obsfeed connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("obsfeed: connected")
	return nil
}

// Subscribe subscribes to the given segments and remembers them for reconnects.
func (c *Client) Subscribe(ctx context.Context, segments []string) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("obsfeed not connected")
	}
	if len(segments) > 0 {
		c.segments = segments
	}
	for _, s := range c.segments {
		msg := map[string]string{"type": "subscribe", "segment": s}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
		log.Printf("obsfeed: subscribed %s", s)
	}
	return nil
}

type wireObservation struct {
	S string  `json:"s"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type wireMessage struct {
	Type string            `json:"type"`
	Data []wireObservation `json:"data"`
}

// Read streams observation events and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.Observation, <-chan error) {
	obs := make(chan *models.Observation, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(obs)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("obsfeed conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("obsfeed read: %w", err)
					return
				}
				var m wireMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-observation frames
					continue
				}
				if m.Type != "observation" {
					continue
				}
				for _, d := range m.Data {
					o := &models.Observation{
						Segment:   d.S,
						Timestamp: time.Unix(d.T/1000, 0),
						Value:     d.V,
					}
					select {
					case obs <- o:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return obs, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx, nil)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
