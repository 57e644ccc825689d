package request

// CreateLobbyRequest is the request body for creating a lobby
type CreateLobbyRequest struct {
	Name string `json:"name,omitempty"`
}

// JoinLobbyRequest is the request body for joining a lobby
type JoinLobbyRequest struct {
	Name string `json:"name,omitempty"`
}
