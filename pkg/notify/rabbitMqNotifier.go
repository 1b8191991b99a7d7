package notify

import (
	"context"
	"fmt"

	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/parlorhq/go-hookrelay/pkg/config"
	"github.com/parlorhq/go-hookrelay/pkg/queue"
)

type RabbitMqNotifierCreator func(ctx context.Context, settings config.NotifierSettings) (Notifier, error)

var NewRabbitMqNotifier RabbitMqNotifierCreator = func(ctx context.Context, settings config.NotifierSettings) (Notifier, error) {
	conn, err := amqp.Dial(settings.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	err = ch.ExchangeDeclare(
		settings.Exchange, // name
		"topic",           // type
		true,              // durable
		false,             // auto-deleted
		false,             // internal
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return &rabbitMqNotifier{connection: conn, channel: ch, exchange: settings.Exchange, topic: settings.Topic}, nil
}

type rabbitMqNotifier struct {
	connection *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	topic      string
}

func (r *rabbitMqNotifier) Announce(ctx context.Context, job *queue.Job) error {
	tracer := otel.Tracer("hookrelay")
	ctx, span := tracer.Start(ctx, "AnnounceDeadLetter",
		trace.WithAttributes(
			semconv.MessagingSystemKey.String("rabbitmq"),
			semconv.MessagingDestinationKey.String(r.exchange),
			semconv.MessagingRabbitmqRoutingKeyKey.String(r.topic),
			attribute.String("job.id", job.ID),
		),
	)
	defer span.End()

	body, err := noticeBody(job)
	if err != nil {
		span.RecordError(err)
		return err
	}

	// Inject the trace context into the message headers
	propagator := otel.GetTextMapPropagator()
	traceHeaders := make(map[string]string)
	propagator.Inject(ctx, propagation.MapCarrier(traceHeaders))

	amqpHeaders := make(amqp.Table)
	for k, v := range traceHeaders {
		amqpHeaders[k] = v
	}

	err = r.channel.Publish(
		r.exchange, r.topic, false, false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Headers:     amqpHeaders,
		},
	)
	if err != nil {
		span.RecordError(err)
		return err
	}

	span.SetAttributes(
		attribute.Int("messaging.message_payload_size_bytes", len(body)),
	)
	return nil
}

func (r *rabbitMqNotifier) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.connection != nil {
		return r.connection.Close()
	}
	return nil
}
