package board

import "time"

// TimeLayout renders timestamps as UTC ISO-8601 with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Message is an entry on the open message board.
type Message struct {
	User string `json:"user"`
	Text string `json:"text"`
	Time string `json:"time"`
}

// FormatTime renders t the way board messages carry it on the wire.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
