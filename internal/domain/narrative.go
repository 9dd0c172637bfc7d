package domain

// Narrative message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// NarrativeMessage is one role-tagged prompt message.
type NarrativeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NarrativeRequest asks a text generator for a completion.
type NarrativeRequest struct {
	Messages    []NarrativeMessage
	Temperature float64
	// JSONOutput requests a single JSON object as the completion.
	JSONOutput bool
}
