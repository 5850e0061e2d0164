package nakama

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"gridclaim/internal/app"
	"gridclaim/internal/domain"
)

var eventOpCodes = map[app.EventKind]int64{
	app.EventPlayerRegistered: OpPlayerRegistered,
	app.EventGameStarted:      OpGameStarted,
	app.EventTurnTaken:        OpTurnTaken,
	app.EventRoundIncremented: OpRoundIncremented,
	app.EventGameEnded:        OpGameEnded,
	app.EventGameReset:        OpGameReset,
	app.EventGameDestroyed:    OpGameDestroyed,
}

// toStruct converts any JSON-tagged payload into a protobuf Struct.
func toStruct(payload any) (*structpb.Struct, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}

// encodeEvent maps an app event to its op code and binary payload.
func encodeEvent(ev app.Event) (int64, []byte, error) {
	opCode, ok := eventOpCodes[ev.Kind]
	if !ok {
		return 0, nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	msg, err := toStruct(ev.Payload)
	if err != nil {
		return 0, nil, fmt.Errorf("convert %s: %w", ev.Kind, err)
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal %s: %w", ev.Kind, err)
	}
	return opCode, data, nil
}

// decodeRequest reads a client payload. Clients send a JSON object; an
// empty payload is an empty request.
func decodeRequest(data []byte) (*structpb.Struct, error) {
	req := &structpb.Struct{}
	if len(data) == 0 {
		return req, nil
	}
	if err := protojson.Unmarshal(data, req); err != nil {
		return nil, err
	}
	return req, nil
}

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func intField(req *structpb.Struct, key string) int {
	return int(req.GetFields()[key].GetNumberValue())
}

// encodeError builds the payload of an OpError message.
func encodeError(code int, message string) ([]byte, error) {
	msg, err := structpb.NewStruct(map[string]interface{}{
		"code":    code,
		"message": message,
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(msg)
}

// errorCode maps orchestrator error classes onto gRPC status codes.
func errorCode(err error) int {
	switch {
	case errors.Is(err, app.ErrInvalid):
		return codeInvalidArgument
	case errors.Is(err, app.ErrUnauthorized):
		return codePermissionDenied
	case errors.Is(err, app.ErrPhase):
		return codeFailedPrecondition
	default:
		return codeInternal
	}
}

// buildLabel renders the match label used by gridclaim_find.
func buildLabel(phase domain.Phase, open bool) (string, error) {
	label, err := structpb.NewStruct(map[string]interface{}{
		labelKeyGame:  labelGame,
		labelKeyPhase: string(phase),
		labelKeyOpen:  open,
	})
	if err != nil {
		return "", err
	}
	raw, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(label)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
