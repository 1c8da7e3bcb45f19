package control

import (
	"encoding/json"
	"strings"

	"github.com/mfahlbusch/camswitch/internal/camera"
)

// Command is one parsed protocol request. Action names are compared
// case-insensitively; Stream is a camera id, "*" for all, or empty.
// An empty target on mutating actions is treated as wildcard.
type Command struct {
	Action string `json:"action"`
	Stream string `json:"stream"`
}

// ParseLine decodes a protocol line. A structured JSON object is tried
// first; anything else falls back to whitespace tokenization (token 0 =
// action, optional token 1 = target). Both forms converge on the same
// Command, so `live cam1` and `{"action":"live","stream":"cam1"}` are
// equivalent.
func ParseLine(line string) Command {
	var cmd Command
	if err := json.Unmarshal([]byte(line), &cmd); err == nil {
		cmd.Action = strings.ToLower(cmd.Action)
		return cmd
	}

	fields := strings.Fields(line)
	if len(fields) > 0 {
		cmd.Action = strings.ToLower(fields[0])
	}
	if len(fields) > 1 {
		cmd.Stream = fields[1]
	}
	return cmd
}

// statusResponse is the success reply: the affected cameras' status views
// in registration order.
type statusResponse struct {
	Streams []camera.Status `json:"streams"`
}

// errorResponse reports a per-command failure. The connection stays open.
type errorResponse struct {
	Error string `json:"error"`
}
