package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"

	sessionDomain "github.com/mateusmacedo/carpool-bff/internal/session/domain"
	"github.com/mateusmacedo/carpool-bff/pkg/application"
	redisAdapter "github.com/mateusmacedo/carpool-bff/pkg/infrastructure/redis/adapter"
	watermillAdapter "github.com/mateusmacedo/carpool-bff/pkg/infrastructure/watermill/adapter"
)

const subscriptionBuffer = 16

// WatermillNotifier publica mudanças de sessão num tópico. Com o gochannel o alcance é o
// processo; com redisstream em modo fan-out, todos os processos que compartilham o Redis.
type WatermillNotifier struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	topic      string
	logger     application.AppLogger
}

func NewWatermillNotifier(publisher message.Publisher, subscriber message.Subscriber, topic string, logger application.AppLogger) *WatermillNotifier {
	return &WatermillNotifier{
		publisher:  publisher,
		subscriber: subscriber,
		topic:      topic,
		logger:     logger,
	}
}

func (n *WatermillNotifier) Notify(ctx context.Context, change sessionDomain.Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode session change: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := n.publisher.Publish(n.topic, msg); err != nil {
		application.LogError(ctx, n.logger, "Erro ao publicar mudança de sessão", err, map[string]interface{}{"topic": n.topic})
		return err
	}
	return nil
}

// Subscribe abre uma assinatura própria no tópico. Ao ser liberada, o que ainda estiver no
// buffer é descartado antes de C ser fechado.
func (n *WatermillNotifier) Subscribe(ctx context.Context) (*sessionDomain.Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)

	messages, err := n.subscriber.Subscribe(subCtx, n.topic)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe to %s: %w", n.topic, err)
	}

	out := make(chan sessionDomain.Change, subscriptionBuffer)
	done := make(chan struct{})

	go func() {
		defer close(done)
		n.deliver(subCtx, messages, out)
		discard(out)
		close(out)
	}()

	release := func() {
		cancel()
		<-done
	}
	return sessionDomain.NewSubscription(out, release), nil
}

func (n *WatermillNotifier) deliver(ctx context.Context, messages <-chan *message.Message, out chan<- sessionDomain.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			var change sessionDomain.Change
			if err := json.Unmarshal(msg.Payload, &change); err != nil {
				application.LogError(ctx, n.logger, "Erro ao decodificar mudança de sessão", err, map[string]interface{}{"topic": n.topic})
				msg.Ack()
				continue
			}
			msg.Ack()

			if ctx.Err() != nil {
				return
			}
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
	}
}

func discard(out chan sessionDomain.Change) {
	for {
		select {
		case <-out:
		default:
			return
		}
	}
}

func (n *WatermillNotifier) Close() error {
	if err := n.publisher.Close(); err != nil {
		return err
	}
	return n.subscriber.Close()
}

// NewChannelNotifier difunde as mudanças apenas dentro do processo.
func NewChannelNotifier(topic string, logger application.AppLogger) *WatermillNotifier {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: subscriptionBuffer}, watermillAdapter.NewWatermillLoggerAdapter(logger))
	return NewWatermillNotifier(pubSub, pubSub, topic, logger)
}

// NewRedisNotifier difunde as mudanças entre processos via Redis Streams. O grupo de
// consumidores vazio coloca o subscriber em modo fan-out: cada assinatura recebe tudo.
func NewRedisNotifier(client redis.UniversalClient, topic string, logger application.AppLogger) (*WatermillNotifier, error) {
	publisher, subscriber, err := redisAdapter.NewRedisPubSub(client, "", "", watermillAdapter.NewWatermillLoggerAdapter(logger))
	if err != nil {
		return nil, err
	}
	return NewWatermillNotifier(publisher, subscriber, topic, logger), nil
}
