package api

// PermissionResult is the tagged result a Permission Gate's future resolves
// to, and the exact shape the engine's tool-gate callback must return.
type PermissionResult struct {
	Behavior     PermissionBehavior `json:"behavior"`
	UpdatedInput map[string]any     `json:"updatedInput,omitempty"`
	Message      string             `json:"message,omitempty"`
}

// AllowResult builds an "allow" PermissionResult carrying the (possibly
// edited) tool input that should actually be executed.
func AllowResult(updatedInput map[string]any) PermissionResult {
	return PermissionResult{Behavior: BehaviorAllow, UpdatedInput: updatedInput}
}

// DenyResult builds the standard "deny" PermissionResult.
func DenyResult() PermissionResult {
	return PermissionResult{Behavior: BehaviorDeny, Message: "User denied"}
}

// EngineUserMessage is the shape a Session pushes onto the engine's input
// stream for every user turn. SessionID is always left empty; the engine
// populates it.
type EngineUserMessage struct {
	Type            string           `json:"type"`
	Message         EngineUserBody   `json:"message"`
	ParentToolUseID *string          `json:"parent_tool_use_id"`
	SessionID       string           `json:"session_id"`
}

// EngineUserBody is the nested role/content pair of an EngineUserMessage.
type EngineUserBody struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewEngineUserMessage builds the engine-facing wire shape for one user turn.
func NewEngineUserMessage(text string) EngineUserMessage {
	return EngineUserMessage{
		Type:            "user",
		Message:         EngineUserBody{Role: "user", Content: text},
		ParentToolUseID: nil,
		SessionID:       "",
	}
}
