package repository

import (
	"context"
	"encoding/json"

	"chat_relay_service/internal/relay/domain"

	"github.com/segmentio/kafka-go"
)

// MessageArchive side channel for relayed messages. Publishing is
// fire-and-forget relative to fan-out; a failure here never blocks or
// rolls back delivery.
type MessageArchive interface {
	Publish(ctx context.Context, msg domain.ChatMessage) error
}

type messageArchive struct {
	writer *kafka.Writer
}

// NewKafkaMessageArchive create a MessageArchive on an existing writer
func NewKafkaMessageArchive(writer *kafka.Writer) MessageArchive {
	return &messageArchive{writer: writer}
}

func (a *messageArchive) Publish(ctx context.Context, msg domain.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return a.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.RoomID),
		Value: data,
	})
}
