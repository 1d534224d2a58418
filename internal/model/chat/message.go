package chat

// Message is a single chat line. Timestamp is in unix seconds.
type Message struct {
	Username  string `json:"username"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}
