package domain

import "time"

// WebMessage is a short note left "in the web" for a random stranger to
// claim. Authors are limited to one message per cooldown window.
type WebMessage struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	ClaimerID *string   `json:"claimer_id,omitempty"`
	Message   string    `json:"message"`
	Claimed   bool      `json:"claimed"`
	CreatedAt time.Time `json:"created_at"`
}

// WebMessageCooldown is the minimum gap between two messages by one author.
const WebMessageCooldown = 24 * time.Hour
