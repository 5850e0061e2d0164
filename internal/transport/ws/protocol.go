package ws

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"gridclaim/internal/domain"
)

const (
	TypeHello   = "hello"
	TypeWelcome = "welcome"
	TypeTurn    = "turn"
	TypeMove    = "move"
	TypeEvent   = "event"
)

type baseMsg struct {
	Type string `json:"type"`
}

// HelloMsg is the first frame an agent sends.
type HelloMsg struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type WelcomeMsg struct {
	Type          string `json:"type"`
	ParticipantID string `json:"participant_id"`
	GameID        string `json:"game_id,omitempty"`
}

// TurnMsg asks the agent for a move. DeadlineMs is the wall-clock budget the
// compute limit converts to.
type TurnMsg struct {
	Type       string               `json:"type"`
	Seq        uint64               `json:"seq"`
	Snapshot   domain.RoundSnapshot `json:"snapshot"`
	Limit      uint64               `json:"limit"`
	DeadlineMs int64                `json:"deadline_ms"`
}

// MoveMsg answers a TurnMsg. A null field declines to move.
type MoveMsg struct {
	Type  string        `json:"type"`
	Seq   uint64        `json:"seq"`
	Field *domain.Field `json:"field"`
}

type EventMsg struct {
	Type    string          `json:"type"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

const moveSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["type", "seq", "field"],
  "additionalProperties": false,
  "properties": {
    "type": {"const": "move"},
    "seq": {"type": "integer", "minimum": 1},
    "field": {
      "oneOf": [
        {"type": "null"},
        {
          "type": "object",
          "required": ["x", "y"],
          "additionalProperties": false,
          "properties": {
            "x": {"type": "integer", "minimum": 0, "maximum": 4294967295},
            "y": {"type": "integer", "minimum": 0, "maximum": 4294967295}
          }
        }
      ]
    }
  }
}`

func compileMoveSchema() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("move.schema.json", moveSchema)
}

// decodeMove validates a raw move frame against the schema before decoding it.
func decodeMove(schema *jsonschema.Schema, raw []byte) (MoveMsg, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return MoveMsg{}, fmt.Errorf("decode move: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return MoveMsg{}, fmt.Errorf("invalid move: %w", err)
	}
	var m MoveMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return MoveMsg{}, fmt.Errorf("decode move: %w", err)
	}
	return m, nil
}
