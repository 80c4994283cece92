package tasks

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// StatusPublisher receives the JSON encoded TaskStatus on every task update.
type StatusPublisher interface {
	Publish(ctx context.Context, taskID string, state State, status json.RawMessage)
}

// LogPublisher publishes task updates to the log.
type LogPublisher struct {
	logger *logrus.Entry
}

func NewLogPublisher(logger *logrus.Entry) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, taskID string, state State, status json.RawMessage) {
	entry := p.logger.WithFields(logrus.Fields{
		"taskID": taskID,
		"state":  string(state),
	})

	if state == Failed {
		entry.Warn(string(status))
		return
	}

	entry.Debug(string(status))
}
