package main

import (
	"encoding/json"

	"sharedcanvas/internal/canvas"
)

// Event names carried in the "type" field of every frame.
const (
	TypeInitializeCanvas = "initializeCanvas"
	TypeUpdateUsers      = "updateUsers"
	TypeWhoIsWriting     = "whoIsWriting"
	TypeStartDrawing     = "startDrawing"
	TypeStopDrawing      = "stopDrawing"
	TypeDraw             = "draw"
	TypeUndo             = "undo"
	TypeRedo             = "redo"
	TypeClearAll         = "clearAll"
	TypeClearCanvas      = "clearCanvas"
	TypeError            = "error"
)

type IncomingMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// OutgoingMessage is the server frame. Data is left out entirely for events
// without a payload; a JSON null is kept.
type OutgoingMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type InitialMessage struct {
	History  []canvas.Stroke   `json:"history"`
	Presence map[string]string `json:"presence"`
}

func newMessage(typ string) OutgoingMessage {
	return OutgoingMessage{Type: typ}
}

func newMessageWith(typ string, data any) (OutgoingMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return OutgoingMessage{}, err
	}
	return OutgoingMessage{Type: typ, Data: raw}, nil
}
