package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"auto-replier-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	CommandsStream   = "DRAFT_COMMANDS"
	commandsSubjects = "commands.>"
	commandsPrefix   = "commands."
)

// CommandHandler processes one command taken off the bus.
type CommandHandler func(ctx context.Context, cmd events.Command) error

// Subscriber takes commands published by other processes on commands.<type>.
type Subscriber struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.ConsumeContext
}

func NewSubscriber(url string) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      CommandsStream,
		Subjects:  []string{commandsSubjects},
		Storage:   jetstream.MemoryStorage,
		Retention: jetstream.WorkQueuePolicy,
	})
	if err != nil {
		log.Printf("Warn: Failed to ensure stream '%s': %v", CommandsStream, err)
	}

	return &Subscriber{nc: nc, js: js}, nil
}

// DecodeCommand reads a command. The type comes from the payload, or from the
// subject suffix when the payload has none.
func DecodeCommand(subject string, data []byte) (events.Command, error) {
	var cmd events.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return events.Command{}, fmt.Errorf("decode command: %w", err)
	}
	if cmd.Type != "" {
		return cmd, nil
	}
	suffix, ok := strings.CutPrefix(subject, commandsPrefix)
	if !ok || suffix == "" {
		return events.Command{}, fmt.Errorf("command on %s has no type", subject)
	}
	cmd.Type = suffix
	return cmd, nil
}

// SubscribeCommands registers handler on a durable consumer. Undecodable
// messages are terminated; handler errors are retried.
func (s *Subscriber) SubscribeCommands(durableName string, handler CommandHandler) error {
	ctx := context.Background()

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, CommandsStream, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: commandsSubjects,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    3,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		cmd, err := DecodeCommand(msg.Subject(), msg.Data())
		if err != nil {
			log.Printf("Dropping command on %s: %v", msg.Subject(), err)
			_ = msg.Term()
			return
		}

		if err := handler(context.Background(), cmd); err != nil {
			log.Printf("Handler failed for command %s: %v", cmd.Type, err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	s.consumer = cc

	log.Printf("Subscribed to %s with durable %s", commandsSubjects, durableName)
	return nil
}

// Close stops consuming and closes the connection.
func (s *Subscriber) Close() {
	if s.consumer != nil {
		s.consumer.Stop()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
