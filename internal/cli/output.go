package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mcoot/shapesync/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
	errW   io.Writer
}

// NewOutput creates a new Output formatter writing to stdout
func NewOutput(format string) *Output {
	return newOutputTo(format, os.Stdout, os.Stderr)
}

func newOutputTo(format string, w, errW io.Writer) *Output {
	return &Output{format: format, w: w, errW: errW}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(o.errW, string(data))
	} else {
		fmt.Fprintf(o.errW, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	if ev, ok := data.(StreamEvent); ok {
		// one event per line so the stream can be piped
		line, _ := json.Marshal(ev)
		fmt.Fprintln(o.w, string(line))
		return
	}
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Player:
		o.printPlayer(v)
	case response.PlayerList:
		o.printPlayerList(v)
	case response.Health:
		o.printHealth(v)
	case StreamEvent:
		o.printStreamEvent(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// StreamEvent is one event read from the spectator stream
type StreamEvent struct {
	Time  time.Time       `json:"time"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func onlineLabel(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}

func (o *Output) printPlayer(p response.Player) {
	fmt.Fprintf(o.w, "Player: %s (#%d)\n", p.Name, p.ID)
	fmt.Fprintf(o.w, "Status: %s\n", onlineLabel(p.Online))
	fmt.Fprintf(o.w, "Position: %.1f, %.1f\n", p.Position.X, p.Position.Y)
	fmt.Fprintf(o.w, "Shape: %s\n", p.Shape)
	if !p.LastSeen.IsZero() {
		fmt.Fprintf(o.w, "Last seen: %s\n", p.LastSeen.Format("2006-01-02 15:04:05"))
	}
}

func (o *Output) printPlayerList(l response.PlayerList) {
	fmt.Fprintf(o.w, "Players (%d, %d online):\n", len(l.Players), l.Online)
	for _, p := range l.Players {
		fmt.Fprintf(o.w, "  #%-4d %-20s %-8s %-8s (%.1f, %.1f)\n",
			p.ID, p.Name, p.Shape, onlineLabel(p.Online), p.Position.X, p.Position.Y)
	}
}

func (o *Output) printHealth(h response.Health) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	fmt.Fprintf(o.w, "Connections: %d\n", h.Connections)
	fmt.Fprintf(o.w, "Spectators: %d\n", h.Spectators)
}

func (o *Output) printStreamEvent(e StreamEvent) {
	fmt.Fprintf(o.w, "[%s] %s: %s\n", e.Time.Format("2006-01-02 15:04:05"), e.Event, string(e.Data))
}
