package adapter

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"

	"github.com/mateusmacedo/carpool-bff/pkg/application"
	"github.com/mateusmacedo/carpool-bff/pkg/domain"
	watermillAdapter "github.com/mateusmacedo/carpool-bff/pkg/infrastructure/watermill/adapter"
)

// NewRedisPubSub cria o par publisher/subscriber sobre Redis Streams.
func NewRedisPubSub(client redis.UniversalClient, consumerGroup, consumer string, logger watermill.LoggerAdapter) (*redisstream.Publisher, *redisstream.Subscriber, error) {
	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: client,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create redis publisher: %w", err)
	}

	subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        client,
		ConsumerGroup: consumerGroup,
		Consumer:      consumer,
	}, logger)
	if err != nil {
		_ = publisher.Close()
		return nil, nil, fmt.Errorf("create redis subscriber: %w", err)
	}

	return publisher, subscriber, nil
}

// NewRedisEventBus cria um barramento de eventos sobre Redis Streams.
func NewRedisEventBus[E domain.Event[D], D any](client redis.UniversalClient, consumerGroup, consumer string, logger application.AppLogger) (*watermillAdapter.StreamEventBus[E, D], error) {
	publisher, subscriber, err := NewRedisPubSub(client, consumerGroup, consumer, watermillAdapter.NewWatermillLoggerAdapter(logger))
	if err != nil {
		return nil, err
	}
	return watermillAdapter.NewStreamEventBus[E, D](publisher, subscriber, logger), nil
}
