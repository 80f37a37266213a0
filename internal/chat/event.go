package chat

import (
	"encoding/json"
	"io"
	"net/http"
)

// ContentType is the media type of a chat response stream.
const ContentType = "application/x-ndjson"

// Event is one record of a chat response stream: DebugEvent, TokenEvent or ErrorEvent.
type Event interface {
	record() any
}

// VectorMatch is a retrieved document as reported in a DebugEvent.
type VectorMatch struct {
	Filename string  `json:"filename"`
	Score    float64 `json:"score"`
}

// DebugEvent exposes the retrieval context sent to the model.
type DebugEvent struct {
	Context string
	Matches []VectorMatch
}

// TokenEvent carries one streamed text fragment of the answer.
type TokenEvent struct {
	Content string
}

// ErrorEvent reports a failure. It is always the last record of a stream.
type ErrorEvent struct {
	Content string
}

type debugData struct {
	Context string        `json:"context_sent_to_llm"`
	Matches []VectorMatch `json:"vector_matches"`
}

type debugRecord struct {
	Type string    `json:"type"`
	Data debugData `json:"data"`
}

type contentRecord struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func (e DebugEvent) record() any {
	matches := e.Matches
	if matches == nil {
		matches = []VectorMatch{}
	}
	return debugRecord{Type: "debug", Data: debugData{Context: e.Context, Matches: matches}}
}

func (e TokenEvent) record() any { return contentRecord{Type: "token", Content: e.Content} }

func (e ErrorEvent) record() any { return contentRecord{Type: "error", Content: e.Content} }

// Encode writes ev as a single JSON line.
func Encode(w io.Writer, ev Event) error {
	b, err := json.Marshal(ev.record())
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

// WriteStream writes every event as it arrives, flushing after each one when w
// supports it. After a write error the remaining events are drained and discarded.
func WriteStream(w io.Writer, events <-chan Event) error {
	flusher, _ := w.(http.Flusher)
	var writeErr error
	for ev := range events {
		if writeErr != nil {
			continue
		}
		if writeErr = Encode(w, ev); writeErr != nil {
			continue
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	return writeErr
}
