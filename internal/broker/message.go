package broker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Veraticus/rupeeflow/internal/live"
)

// Notice says that one topic of one user's data changed somewhere.
type Notice struct {
	SentAt time.Time  `json:"sentAt"`
	UserID string     `json:"userId"`
	Topic  live.Topic `json:"topic"`
	Origin string     `json:"origin"`
}

// ToJSON encodes the notice for the wire.
func (n Notice) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

// NoticeFromJSON decodes and checks a notice.
func NoticeFromJSON(data []byte) (Notice, error) {
	var n Notice
	if err := json.Unmarshal(data, &n); err != nil {
		return Notice{}, fmt.Errorf("decode notice: %w", err)
	}
	if n.UserID == "" {
		return Notice{}, fmt.Errorf("decode notice: missing userId")
	}
	if n.Topic != live.TopicTransactions && n.Topic != live.TopicBudgets {
		return Notice{}, fmt.Errorf("decode notice: unknown topic %q", n.Topic)
	}
	return n, nil
}
