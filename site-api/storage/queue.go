package storage

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
)

// QueueMessage is a dequeued content event awaiting acknowledgement.
type QueueMessage struct {
	ID           string
	PopReceipt   string
	Text         string
	DequeueCount int64
}

// Dequeue receives up to max messages from the events queue, hiding them for
// visibility while they are processed.
func (s *Storage) Dequeue(ctx context.Context, max int32, visibility time.Duration) ([]QueueMessage, error) {
	vis := int32(visibility / time.Second)
	resp, err := s.eventsQueue.DequeueMessages(ctx, &azqueue.DequeueMessagesOptions{
		NumberOfMessages:  &max,
		VisibilityTimeout: &vis,
	})
	if err != nil {
		return nil, err
	}
	out := make([]QueueMessage, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		if m == nil || m.MessageID == nil || m.PopReceipt == nil {
			continue
		}
		msg := QueueMessage{ID: *m.MessageID, PopReceipt: *m.PopReceipt}
		if m.MessageText != nil {
			msg.Text = *m.MessageText
		}
		if m.DequeueCount != nil {
			msg.DequeueCount = *m.DequeueCount
		}
		out = append(out, msg)
	}
	return out, nil
}

// Ack removes a processed message from the events queue.
func (s *Storage) Ack(ctx context.Context, msg QueueMessage) error {
	_, err := s.eventsQueue.DeleteMessage(ctx, msg.ID, msg.PopReceipt, nil)
	return err
}
