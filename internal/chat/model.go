package chat

import "time"

// ---------------------------------------------
// Database & API Models
// ---------------------------------------------

type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// PresenceEntry is one row of the online roster.
type PresenceEntry struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// ---------------------------------------------
// Wire frames
// ---------------------------------------------

// inboundFrame is the only JSON the client sends over the socket.
// Everything else about the message (id, sender, timestamp) is ours to fill.
type inboundFrame struct {
	Recipient string `json:"recipient"`
	Text      string `json:"text"`
}

// presenceFrame and the Message struct are the two outbound shapes; the
// client tells them apart by which field is present.
type presenceFrame struct {
	Online []PresenceEntry `json:"online"`
}

type editRequest struct {
	Text string `json:"text"`
}
