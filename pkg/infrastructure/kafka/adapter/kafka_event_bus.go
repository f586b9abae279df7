package adapter

import (
	"errors"
	"fmt"

	"github.com/Shopify/sarama"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"

	"github.com/mateusmacedo/carpool-bff/pkg/application"
	"github.com/mateusmacedo/carpool-bff/pkg/domain"
	watermillAdapter "github.com/mateusmacedo/carpool-bff/pkg/infrastructure/watermill/adapter"
)

// NewSaramaConfig devolve a configuração de consumidor usada pelos assinantes.
func NewSaramaConfig(clientID string) *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V1_0_0_0
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.ClientID = clientID
	return saramaConfig
}

// NewKafkaEventBus cria um barramento de eventos sobre tópicos do Kafka.
func NewKafkaEventBus[E domain.Event[D], D any](brokers []string, consumerGroup string, logger application.AppLogger) (*watermillAdapter.StreamEventBus[E, D], error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka event bus: no brokers configured")
	}

	wmLogger := watermillAdapter.NewWatermillLoggerAdapter(logger)
	marshaler := kafka.DefaultMarshaler{}

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: marshaler,
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}

	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               brokers,
		Unmarshaler:           marshaler,
		ConsumerGroup:         consumerGroup,
		OverwriteSaramaConfig: NewSaramaConfig(consumerGroup),
		InitializeTopicDetails: &sarama.TopicDetail{
			NumPartitions:     1,
			ReplicationFactor: 1,
		},
	}, wmLogger)
	if err != nil {
		_ = publisher.Close()
		return nil, fmt.Errorf("create kafka subscriber: %w", err)
	}

	return watermillAdapter.NewStreamEventBus[E, D](publisher, subscriber, logger), nil
}
