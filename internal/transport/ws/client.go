package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"gridclaim/internal/domain"
)

// Client is the agent side of the websocket protocol.
type Client struct {
	conn          *websocket.Conn
	ParticipantID string
	GameID        string
}

// ProposeFunc decides a move for one turn. A nil field declines to move.
type ProposeFunc func(ctx context.Context, turn TurnMsg) *domain.Field

// Dial connects to a hub and authenticates with token.
func Dial(ctx context.Context, url, token string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if err := writeJSON(conn, HelloMsg{Type: TypeHello, Token: token}); err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var welcome WelcomeMsg
	if err := conn.ReadJSON(&welcome); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("handshake: %w", err)
	}
	if welcome.Type != TypeWelcome {
		_ = conn.Close()
		return nil, fmt.Errorf("handshake: unexpected %q frame", welcome.Type)
	}
	_ = conn.SetReadDeadline(time.Time{})
	return &Client{conn: conn, ParticipantID: welcome.ParticipantID, GameID: welcome.GameID}, nil
}

// Run answers turns with propose and hands events to onEvent until the
// connection or ctx ends. onEvent may be nil.
func (c *Client) Run(ctx context.Context, propose ProposeFunc, onEvent func(EventMsg)) error {
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		var base baseMsg
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}
		switch base.Type {
		case TypeTurn:
			var turn TurnMsg
			if err := json.Unmarshal(msg, &turn); err != nil {
				continue
			}
			field := propose(ctx, turn)
			if err := writeJSON(c.conn, MoveMsg{Type: TypeMove, Seq: turn.Seq, Field: field}); err != nil {
				return err
			}
		case TypeEvent:
			if onEvent == nil {
				continue
			}
			var ev EventMsg
			if err := json.Unmarshal(msg, &ev); err == nil {
				onEvent(ev)
			}
		}
	}
}

// SendRaw writes an arbitrary frame.
func (c *Client) SendRaw(frame []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *Client) Close() error {
	return c.conn.Close()
}
