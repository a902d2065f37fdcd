package events

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Field-path candidates, tried in priority order. Backends disagree on
// where they put things; these lists are the complete set of layouts we
// recognize. First non-empty match wins.
var (
	textPaths     = []string{"message.content.0.text", "content.0.text", "text", "message.text"}
	modelPaths    = []string{"model", "modelId", "message.model"}
	sessionPaths  = []string{"session_id", "sessionId", "thread_id"}
	durationPaths = []string{"duration_ms", "duration", "elapsed_ms"}

	toolNamePaths = []string{"tool_call.name", "tool_call.tool", "tool_name", "tool", "name"}
	toolPathPaths = []string{
		"tool_call.args.path", "tool_call.args.file_path", "tool_call.args.file",
		"path", "file_path", "file",
	}
	toolCmdPaths = []string{"tool_call.args.command", "tool_call.args.cmd", "command", "cmd"}
	bytesPaths   = []string{"tool_call.result.bytes", "tool_call.result.size", "bytes", "size"}
	linesPaths   = []string{"tool_call.result.lines", "lines", "num_lines"}
	exitPaths    = []string{"tool_call.result.exit_code", "tool_call.result.exitCode", "exit_code", "exitCode"}
	stdoutPaths  = []string{"tool_call.result.stdout", "tool_call.result.output", "stdout", "output"}
	stderrPaths  = []string{"tool_call.result.stderr", "stderr"}
)

// Classify turns one raw line of backend output into a typed Event.
// The second return is false for lines that are unparseable or carry
// nothing the pipeline cares about; the caller skips those. Parse
// failure is never an error. Classify mutates nothing.
func Classify(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") || !gjson.Valid(line) {
		return Event{}, false
	}

	typ := gjson.Get(line, "type").String()
	subtype := gjson.Get(line, "subtype").String()

	switch {
	case typ == "system" && subtype == "init",
		typ == "session_start", typ == "start", typ == "session_meta":
		return Event{
			Type:      EventTypeSessionStart,
			Model:     firstString(line, modelPaths),
			SessionID: firstString(line, sessionPaths),
		}, true

	case typ == "assistant", typ == "message", typ == "agent_message", typ == "text":
		text := firstString(line, textPaths)
		if text == "" {
			return Event{}, false
		}
		return Event{Type: EventTypeAssistantText, Text: text}, true

	case typ == "tool_use", typ == "tool_call_start":
		return Event{Type: EventTypeToolCallStart}, true

	case typ == "tool_result", typ == "tool_call_result",
		typ == "tool_call" && gjson.Get(line, "tool_call.result").Exists():
		return classifyToolResult(line), true

	case typ == "tool_call":
		// tool_call without a result payload is an announcement only
		return Event{Type: EventTypeToolCallStart}, true

	case typ == "result", typ == "session_end", typ == "end", typ == "turn_completed":
		return Event{
			Type:       EventTypeSessionEnd,
			DurationMs: firstInt(line, durationPaths),
		}, true
	}

	return Event{}, false
}

func classifyToolResult(line string) Event {
	return Event{
		Type:     EventTypeToolCallResult,
		Tool:     toolKind(firstString(line, toolNamePaths)),
		Path:     firstString(line, toolPathPaths),
		Bytes:    int(firstInt(line, bytesPaths)),
		Lines:    int(firstInt(line, linesPaths)),
		Command:  firstString(line, toolCmdPaths),
		ExitCode: int(firstInt(line, exitPaths)),
		Stdout:   firstString(line, stdoutPaths),
		Stderr:   firstString(line, stderrPaths),
	}
}

// toolKind buckets a backend tool name into the four categories the
// pipeline tracks. Unknown tools land in ToolOther and still count
// toward the tool-call total.
func toolKind(name string) ToolKind {
	switch strings.ToLower(name) {
	case "read", "cat", "view", "open":
		return ToolRead
	case "write", "edit", "multiedit", "create", "apply_patch", "patch":
		return ToolWrite
	case "bash", "shell", "exec", "run", "command", "terminal":
		return ToolShell
	default:
		return ToolOther
	}
}

func firstString(json string, paths []string) string {
	for _, p := range paths {
		if v := gjson.Get(json, p); v.Exists() {
			if s := v.String(); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstInt(json string, paths []string) int64 {
	for _, p := range paths {
		if v := gjson.Get(json, p); v.Exists() {
			return v.Int()
		}
	}
	return 0
}
