package amqp

import (
	"encoding/json"
	"time"
)

// MailMessage asks the mail worker to deliver a temporary password.
// The credential travels in the message so the worker needs no database
// access.
type MailMessage struct {
	Email        string    `json:"email"`
	TempPassword string    `json:"temp_password"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewMailMessage(email, tempPassword string) *MailMessage {
	return &MailMessage{
		Email:        email,
		TempPassword: tempPassword,
		Timestamp:    time.Now(),
	}
}

func (m *MailMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MailMessageFromJSON(data []byte) (*MailMessage, error) {
	var msg MailMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
