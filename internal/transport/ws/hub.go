// Package ws lets remote agents play over a websocket. The Hub implements
// ports.AgentCaller for connected agents and app.Publisher for observers.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"gridclaim/internal/app"
	"gridclaim/internal/domain"
	"gridclaim/internal/ports"
)

var (
	ErrNotConnected = errors.New("agent not connected")
	ErrDisconnected = errors.New("agent disconnected during its turn")
	ErrDeadline     = errors.New("agent missed its deadline")
	ErrBackpressure = errors.New("agent send queue full")
)

// Verifier checks agent tokens.
type Verifier interface {
	VerifyToken(token string) (app.AgentClaims, error)
}

type Options struct {
	// GameID, when set, rejects tokens issued for other games.
	GameID string
	// UnitsPerMs converts a compute limit into a wall-clock deadline.
	UnitsPerMs uint64
	// MaxWait caps the deadline of a single turn.
	MaxWait time.Duration
	Logger  runtime.Logger
}

type Hub struct {
	verifier Verifier
	opts     Options
	schema   *jsonschema.Schema
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*agentConn

	seq atomic.Uint64
}

type agentConn struct {
	id      string
	out     chan []byte
	replies chan reply
	done    chan struct{}
	once    sync.Once
}

type reply struct {
	move MoveMsg
	err  error
}

func (c *agentConn) close() {
	c.once.Do(func() { close(c.done) })
}

func NewHub(verifier Verifier, opts Options) (*Hub, error) {
	if verifier == nil {
		return nil, errors.New("token verifier is required")
	}
	if opts.UnitsPerMs == 0 {
		opts.UnitsPerMs = 1_000_000
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = 5 * time.Second
	}
	schema, err := compileMoveSchema()
	if err != nil {
		return nil, fmt.Errorf("compile move schema: %w", err)
	}
	return &Hub{
		verifier: verifier,
		opts:     opts,
		schema:   schema,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[string]*agentConn),
	}, nil
}

// Connected reports whether an agent currently plays for the participant.
func (h *Hub) Connected(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[id]
	return ok
}

func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		c := h.handshake(conn)
		if c == nil {
			return
		}
		defer h.unregister(c)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-c.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						_ = conn.Close()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var base baseMsg
			if err := json.Unmarshal(msg, &base); err != nil || base.Type != TypeMove {
				h.deliver(c, reply{err: fmt.Errorf("unexpected frame: %.64s", msg)})
				continue
			}
			move, err := decodeMove(h.schema, msg)
			h.deliver(c, reply{move: move, err: err})
		}
	}
}

// deliver hands a reply to a pending turn, keeping only the newest.
func (h *Hub) deliver(c *agentConn, r reply) {
	for {
		select {
		case c.replies <- r:
			return
		default:
		}
		select {
		case <-c.replies:
		default:
		}
	}
}

func (h *Hub) handshake(conn *websocket.Conn) *agentConn {
	reject := func(reason string) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}
	var hello HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil || hello.Type != TypeHello {
		reject("expected hello")
		return nil
	}
	claims, err := h.verifier.VerifyToken(hello.Token)
	if err != nil {
		reject("invalid token")
		return nil
	}
	if h.opts.GameID != "" && claims.GameID != "" && claims.GameID != h.opts.GameID {
		reject("token issued for another game")
		return nil
	}

	c := &agentConn{
		id:      claims.ParticipantID,
		out:     make(chan []byte, 16),
		replies: make(chan reply, 1),
		done:    make(chan struct{}),
	}
	h.register(c)

	if err := writeJSON(conn, WelcomeMsg{Type: TypeWelcome, ParticipantID: c.id, GameID: h.opts.GameID}); err != nil {
		h.unregister(c)
		return nil
	}
	if h.opts.Logger != nil {
		h.opts.Logger.WithField("participant", c.id).Info("Remote agent connected")
	}
	return c
}

// register replaces any earlier connection for the same participant.
func (h *Hub) register(c *agentConn) {
	h.mu.Lock()
	prev := h.conns[c.id]
	h.conns[c.id] = c
	h.mu.Unlock()
	if prev != nil {
		prev.close()
	}
}

func (h *Hub) unregister(c *agentConn) {
	h.mu.Lock()
	if h.conns[c.id] == c {
		delete(h.conns, c.id)
	}
	h.mu.Unlock()
	c.close()
}

// Deadline converts a compute limit into the wall-clock time an agent gets.
func (h *Hub) Deadline(limit uint64) time.Duration {
	ms := limit / h.opts.UnitsPerMs
	if ms == 0 {
		ms = 1
	}
	if ms > uint64(h.opts.MaxWait/time.Millisecond) {
		return h.opts.MaxWait
	}
	return time.Duration(ms) * time.Millisecond
}

// Propose sends a turn to the connected agent and waits for its move. Cost is
// the elapsed wall time converted back to compute units, capped at limit.
func (h *Hub) Propose(ctx context.Context, id string, snapshot domain.RoundSnapshot, limit uint64) ports.Reply {
	h.mu.RLock()
	c := h.conns[id]
	h.mu.RUnlock()
	if c == nil {
		return ports.Reply{Err: fmt.Errorf("%w: %s", ErrNotConnected, id)}
	}

	// Drop anything left over from an earlier turn.
	select {
	case <-c.replies:
	default:
	}

	deadline := h.Deadline(limit)
	seq := h.seq.Add(1)
	frame, err := json.Marshal(TurnMsg{
		Type:       TypeTurn,
		Seq:        seq,
		Snapshot:   snapshot,
		Limit:      limit,
		DeadlineMs: deadline.Milliseconds(),
	})
	if err != nil {
		return ports.Reply{Err: err}
	}

	start := time.Now()
	cost := func() uint64 {
		used := domain.SaturatingMul(uint64(time.Since(start).Microseconds()), h.opts.UnitsPerMs) / 1000
		return min(used, limit)
	}

	select {
	case c.out <- frame:
	case <-c.done:
		return ports.Reply{Err: ErrDisconnected}
	default:
		return ports.Reply{Err: ErrBackpressure}
	}

	timer := time.NewTimer(deadline)
	defer timer.Stop()
	for {
		select {
		case r := <-c.replies:
			if r.err != nil {
				return ports.Reply{Used: cost(), Err: r.err}
			}
			if r.move.Seq != seq {
				continue
			}
			return ports.Reply{Move: r.move.Field, Used: cost()}
		case <-timer.C:
			return ports.Reply{Used: limit, Err: ErrDeadline}
		case <-c.done:
			return ports.Reply{Used: cost(), Err: ErrDisconnected}
		case <-ctx.Done():
			return ports.Reply{Used: cost(), Err: ctx.Err()}
		}
	}
}

// Publish fans events out to connected agents. Slow agents miss events.
func (h *Hub) Publish(ctx context.Context, events ...app.Event) {
	h.mu.RLock()
	conns := make([]*agentConn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, ev := range events {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			if h.opts.Logger != nil {
				h.opts.Logger.Warn("Failed to encode %s event: %v", ev.Kind, err)
			}
			continue
		}
		frame, err := json.Marshal(EventMsg{Type: TypeEvent, Kind: string(ev.Kind), Payload: payload})
		if err != nil {
			continue
		}
		for _, c := range conns {
			if !recipient(ev, c.id) {
				continue
			}
			select {
			case c.out <- frame:
			default:
			}
		}
	}
}

func recipient(ev app.Event, id string) bool {
	if len(ev.Recipients) == 0 {
		return true
	}
	for _, r := range ev.Recipients {
		if r == id {
			return true
		}
	}
	return false
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
