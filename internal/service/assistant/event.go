package assistant

import cmdmodel "github.com/rknm-cell/mise/backend/internal/model/command"

// Outbound event types.
const (
	EventAck      = "ack"
	EventReply    = "reply"
	EventTimer    = "timer"
	EventNavigate = "navigate"
	EventModify   = "modify"
	EventPrep     = "prep"
	EventTiming   = "timing"
	EventSession  = "session"
	EventError    = "error"
)

// Event is pushed to the client. Data depends on Type.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Emitter delivers events to the client. It must not block for long.
type Emitter func(Event)

// AckData is the payload of an ack event.
type AckData struct {
	Text           string                   `json:"text"`
	Classification *cmdmodel.Classification `json:"classification,omitempty"`
}

// NavigateData is the payload of a navigate event.
type NavigateData struct {
	StepNumber     int   `json:"stepNumber"`
	CompletedSteps []int `json:"completedSteps"`
}

// ErrorData is the payload of an error event.
type ErrorData struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
