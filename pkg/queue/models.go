package queue

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobType identifies the kind of background job in the queue
type JobType string

const (
	// JobArchiveGame copies a live game into the durable archive
	JobArchiveGame JobType = "archive_game"
)

// Job is one unit of background work
type Job struct {
	JobID  string    `json:"job_id"`
	Type   JobType   `json:"type"`
	GameID uuid.UUID `json:"game_id"`

	// Records is the history length when the job was queued
	Records int `json:"records,omitempty"`

	Attempts   int       `json:"attempts,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewArchiveJob builds an archive job for a game
func NewArchiveJob(gameID uuid.UUID, records int) *Job {
	return &Job{
		JobID:      uuid.New().String(),
		Type:       JobArchiveGame,
		GameID:     gameID,
		Records:    records,
		EnqueuedAt: time.Now().UTC(),
	}
}

// ToJSON serializes the job for Redis storage
func (j *Job) ToJSON() ([]byte, error) {
	return json.Marshal(j)
}

// FromJSON deserializes a job read from Redis
func FromJSON(data []byte) (*Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, err
	}
	if j.GameID == uuid.Nil {
		return nil, errors.New("job has no game_id")
	}
	return &j, nil
}
