package api

// ToolCallInfo tracks one tool invocation as it streams in. InputText
// accumulates the raw partial JSON from tool_input_delta events; Input is the
// finalized decoded map, populated independently once a tool_call event
// arrives (which may happen before, after, or without any deltas at all).
type ToolCallInfo struct {
	ToolCallID string         `json:"toolCallId"`
	ToolName   string         `json:"toolName"`
	InputText  string         `json:"inputText,omitempty"`
	Input      map[string]any `json:"input,omitempty"`
	Result     any            `json:"result,omitempty"`
	IsError    bool           `json:"isError,omitempty"`
}

// AgentMessage is one assistant turn accumulating text, thinking, and any
// tool calls it introduced, in the order they were introduced.
type AgentMessage struct {
	Role            string `json:"role"`
	ParentToolUseID string `json:"parentToolUseId,omitempty"`
	CurrentText     string `json:"currentText"`
	CurrentThinking string `json:"currentThinking"`

	ToolCalls   map[string]*ToolCallInfo `json:"toolCalls"`
	toolCallIDs []string                 // insertion order, not serialized
}

// ToolCallsInOrder returns the message's tool calls in the order they were
// introduced via tool_start/tool_call.
func (m *AgentMessage) ToolCallsInOrder() []*ToolCallInfo {
	out := make([]*ToolCallInfo, 0, len(m.toolCallIDs))
	for _, id := range m.toolCallIDs {
		if tc, ok := m.ToolCalls[id]; ok {
			out = append(out, tc)
		}
	}
	return out
}

// AddToolCall registers a tool call on this message, preserving insertion
// order for ToolCallsInOrder. Re-registering an existing toolCallId updates
// it in place without disturbing its position.
func (m *AgentMessage) AddToolCall(tc *ToolCallInfo) {
	if m.ToolCalls == nil {
		m.ToolCalls = make(map[string]*ToolCallInfo)
	}
	if _, exists := m.ToolCalls[tc.ToolCallID]; !exists {
		m.toolCallIDs = append(m.toolCallIDs, tc.ToolCallID)
	}
	m.ToolCalls[tc.ToolCallID] = tc
}

// PendingPermission is a permission_request awaiting resolution, retained in
// AgentState so a reconnecting client can redraw the approval prompt.
type PendingPermission struct {
	ID        string         `json:"id"`
	ToolName  string         `json:"toolName"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"toolUseId,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

// PendingQuestion is a user_question awaiting resolution.
type PendingQuestion struct {
	ID       string           `json:"id"`
	Question string           `json:"question"`
	Options  []QuestionOption `json:"options,omitempty"`
}

// AgentState is the client-side reduction of a session's event stream.
type AgentState struct {
	SessionID          string                         `json:"sessionId,omitempty"`
	IsRunning          bool                            `json:"isRunning"`
	Messages           []*AgentMessage                `json:"messages"`
	PendingPermissions map[string]*PendingPermission   `json:"pendingPermissions"`
	PendingQuestions   map[string]*PendingQuestion     `json:"pendingQuestions"`
	Result             any                             `json:"result,omitempty"`
	Error              string                          `json:"error,omitempty"`
}

// NewAgentState returns the zero value a client starts from before any
// session_init has been observed.
func NewAgentState() *AgentState {
	return &AgentState{
		Messages:           []*AgentMessage{},
		PendingPermissions: map[string]*PendingPermission{},
		PendingQuestions:   map[string]*PendingQuestion{},
	}
}

// LastMessage returns the most recently appended message, or nil if none.
func (s *AgentState) LastMessage() *AgentMessage {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// Clone returns a deep copy of the state, safe for a caller to hold onto
// while the original keeps folding further events via Reduce. A shallow
// copy would alias the *AgentMessage and *ToolCallInfo pointers Reduce
// mutates in place, silently corrupting any snapshot taken earlier.
func (s *AgentState) Clone() *AgentState {
	clone := &AgentState{
		SessionID: s.SessionID,
		IsRunning: s.IsRunning,
		Result:    s.Result,
		Error:     s.Error,
	}

	clone.Messages = make([]*AgentMessage, len(s.Messages))
	for i, m := range s.Messages {
		clone.Messages[i] = m.clone()
	}

	clone.PendingPermissions = make(map[string]*PendingPermission, len(s.PendingPermissions))
	for id, p := range s.PendingPermissions {
		cp := *p
		clone.PendingPermissions[id] = &cp
	}

	clone.PendingQuestions = make(map[string]*PendingQuestion, len(s.PendingQuestions))
	for id, q := range s.PendingQuestions {
		cq := *q
		clone.PendingQuestions[id] = &cq
	}

	return clone
}

func (m *AgentMessage) clone() *AgentMessage {
	cm := &AgentMessage{
		Role:            m.Role,
		ParentToolUseID: m.ParentToolUseID,
		CurrentText:     m.CurrentText,
		CurrentThinking: m.CurrentThinking,
		ToolCalls:       make(map[string]*ToolCallInfo, len(m.ToolCalls)),
		toolCallIDs:     append([]string(nil), m.toolCallIDs...),
	}
	for id, tc := range m.ToolCalls {
		ctc := *tc
		cm.ToolCalls[id] = &ctc
	}
	return cm
}
