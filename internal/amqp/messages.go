package amqp

import (
	"encoding/json"
	"time"
)

// Message types carried in the AMQP Type property.
const (
	TypeEntrySync   = "entry.sync"
	TypeEntryDelete = "entry.delete"
)

// EntrySyncMessage asks the worker to mirror one journal entry.
// It carries only the key and version; the worker re-reads the entry from the
// database and drops the message if a newer version has been stored since.
type EntrySyncMessage struct {
	UserID    string    `json:"user_id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// EntryDeleteMessage asks the worker to remove a mirrored entry.
type EntryDeleteMessage struct {
	UserID    string    `json:"user_id"`
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntrySyncMessage(userID, date string, version int64) *EntrySyncMessage {
	return &EntrySyncMessage{
		UserID:    userID,
		Date:      date,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func NewEntryDeleteMessage(userID, date string) *EntryDeleteMessage {
	return &EntryDeleteMessage{
		UserID:    userID,
		Date:      date,
		Timestamp: time.Now(),
	}
}

func (m *EntrySyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func (m *EntryDeleteMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntrySyncMessageFromJSON(data []byte) (*EntrySyncMessage, error) {
	var msg EntrySyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func EntryDeleteMessageFromJSON(data []byte) (*EntryDeleteMessage, error) {
	var msg EntryDeleteMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
