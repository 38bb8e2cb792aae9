package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/zentist/clinicdesk/core"
)

// streamEvent is the external wire shape. Every SSE frame is exactly
// "data: <json>\n\n"; the frontend switches on the event field.
type streamEvent struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// sseWriter frames streamEvents onto an HTTP response, flushing after each.
type sseWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	flusher, _ := w.(http.Flusher)
	return &sseWriter{w: w, flusher: flusher}
}

func (s *sseWriter) send(event string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(streamEvent{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("server: encode %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", raw); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// translate maps one engine event onto zero or more wire events. Engine
// shapes the protocol does not cover (final aggregated messages, tool
// partials) produce nothing.
func translate(ev core.Event) []streamEvent {
	switch {
	case ev.Handoff != "":
		return []streamEvent{{Event: "handoff", Data: map[string]any{"new_agent": ev.Handoff}}}

	case ev.Partial:
		if delta := ev.Content.Text(); delta != "" {
			return []streamEvent{{Event: "text", Data: map[string]any{"delta": delta}}}
		}
		return nil

	case len(ev.FunctionCalls()) > 0:
		out := make([]streamEvent, 0, len(ev.FunctionCalls()))
		for _, fc := range ev.FunctionCalls() {
			out = append(out, streamEvent{Event: "tool_start", Data: map[string]any{
				"type":      "function_call",
				"call_id":   fc.ID,
				"name":      fc.Name,
				"arguments": fc.Arguments,
			}})
		}
		return out

	case len(ev.FunctionResponses()) > 0:
		out := make([]streamEvent, 0, len(ev.FunctionResponses()))
		for _, fr := range ev.FunctionResponses() {
			out = append(out, streamEvent{Event: "tool_end", Data: map[string]any{
				"call_id": fr.ID,
				"output":  stringifyOutput(fr),
			}})
		}
		return out
	}
	return nil
}

func stringifyOutput(fr core.FunctionResponse) string {
	if fr.Error != "" {
		return fr.Error
	}
	if s, ok := fr.Response.(string); ok {
		return s
	}
	raw, err := json.Marshal(fr.Response)
	if err != nil {
		return fmt.Sprintf("%v", fr.Response)
	}
	return string(raw)
}
