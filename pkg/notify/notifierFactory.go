package notify

import (
	"context"
	"fmt"

	"github.com/parlorhq/go-hookrelay/pkg/config"
)

// NewNotifier builds the dead-letter notifier selected by configuration. An
// empty type means dead letters are only kept in the queue's dead set and
// nil is returned.
func NewNotifier(ctx context.Context, cfg config.NotifierSettings) (Notifier, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "rabbitmq":
		return NewRabbitMqNotifier(ctx, cfg)
	case "gcp-pubsub":
		return NewPubSubNotifier(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported notifier type: %s", cfg.Type)
	}
}
