package events

// EventType identifies the kind of event extracted from one line of
// backend agent output.
type EventType string

const (
	// EventTypeSessionStart indicates the backend opened a new session
	EventTypeSessionStart EventType = "session_start"
	// EventTypeAssistantText indicates free-form assistant text
	EventTypeAssistantText EventType = "assistant_text"
	// EventTypeToolCallStart indicates a tool invocation began
	EventTypeToolCallStart EventType = "tool_call_start"
	// EventTypeToolCallResult indicates a tool invocation completed
	EventTypeToolCallResult EventType = "tool_call_result"
	// EventTypeSessionEnd indicates the backend closed the session
	EventTypeSessionEnd EventType = "session_end"
)

// ToolKind is the coarse category of a completed tool call. The budget
// and anomaly rules only care about these four buckets.
type ToolKind string

const (
	ToolRead  ToolKind = "read"
	ToolWrite ToolKind = "write"
	ToolShell ToolKind = "shell"
	ToolOther ToolKind = "other"
)

// Event is a single classified backend event. Exactly one group of
// fields is meaningful, selected by Type; the zero value of the rest is
// ignored. Events are immutable once returned by the classifier.
type Event struct {
	Type EventType

	// SessionStart
	Model     string
	SessionID string // resume handle for the next invocation

	// AssistantText
	Text string

	// ToolCallResult
	Tool     ToolKind
	Path     string
	Bytes    int
	Lines    int
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string

	// SessionEnd
	DurationMs int64
}

// Signal is a control decision raised by the pipeline while a session
// is running. Higher values take precedence when several signals fire
// within one session.
type Signal int

const (
	SignalNone Signal = iota
	SignalWarn
	SignalRotate
	SignalComplete
	SignalGutter
)

// String returns the log-facing name of the signal.
func (s Signal) String() string {
	switch s {
	case SignalWarn:
		return "WARN"
	case SignalRotate:
		return "ROTATE"
	case SignalComplete:
		return "COMPLETE"
	case SignalGutter:
		return "GUTTER"
	default:
		return "NONE"
	}
}

// Max returns the higher-priority of two signals.
func Max(a, b Signal) Signal {
	if b > a {
		return b
	}
	return a
}
