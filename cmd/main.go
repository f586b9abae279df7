package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/mateusmacedo/carpool-bff/internal/config"
	"github.com/mateusmacedo/carpool-bff/internal/domain"
	sharedInfra "github.com/mateusmacedo/carpool-bff/internal/infrastructure"
	"github.com/mateusmacedo/carpool-bff/internal/marketplace"
	marketApp "github.com/mateusmacedo/carpool-bff/internal/marketplace/application"
	"github.com/mateusmacedo/carpool-bff/internal/session"
	sessionDomain "github.com/mateusmacedo/carpool-bff/internal/session/domain"
	sessionInfra "github.com/mateusmacedo/carpool-bff/internal/session/infrastructure"
	pkgApp "github.com/mateusmacedo/carpool-bff/pkg/application"
	pkgDomain "github.com/mateusmacedo/carpool-bff/pkg/domain"
	pkgInfra "github.com/mateusmacedo/carpool-bff/pkg/infrastructure"
	channelsAdapter "github.com/mateusmacedo/carpool-bff/pkg/infrastructure/channels/adapter"
	kafkaAdapter "github.com/mateusmacedo/carpool-bff/pkg/infrastructure/kafka/adapter"
	redisAdapter "github.com/mateusmacedo/carpool-bff/pkg/infrastructure/redis/adapter"
	watermillAdapter "github.com/mateusmacedo/carpool-bff/pkg/infrastructure/watermill/adapter"
	zapAdapter "github.com/mateusmacedo/carpool-bff/pkg/infrastructure/zaplogger/adapter"
)

type marketplaceEventBus = pkgApp.EventBus[pkgDomain.Event[marketApp.MarketplaceEventData], marketApp.MarketplaceEventData]

func main() {
	flags := pflag.NewFlagSet("carpool-bff", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "arquivo YAML de configuração")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	appLogger, err := zapAdapter.NewZapAppLogger(cfg.Log.App, cfg.Log.Level)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				pkgApp.LogError(context.Background(), appLogger, "Erro ao liberar recurso", err, nil)
			}
		}
	}()

	var redisClient redis.UniversalClient
	sharedRedis := func() redis.UniversalClient {
		if redisClient == nil {
			redisClient = redisAdapter.NewRedisClient(redisAdapter.ClientOptions{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			closers = append(closers, redisClient)
		}
		return redisClient
	}

	medium, err := openMedium(cfg.Storage, sharedRedis, appLogger, &closers)
	if err != nil {
		pkgApp.LogError(ctx, appLogger, "Erro ao inicializar o armazenamento", err, map[string]interface{}{
			"backend": cfg.Storage.Backend,
		})
		os.Exit(1)
	}

	notifier, err := openNotifier(cfg.Notifier, sharedRedis, appLogger)
	if err != nil {
		pkgApp.LogError(ctx, appLogger, "Erro ao inicializar o notificador de sessão", err, map[string]interface{}{
			"backend": cfg.Notifier.Backend,
		})
		os.Exit(1)
	}
	closers = append(closers, notifier)

	eventBus, err := openEventBus(cfg.Events, sharedRedis, appLogger, &closers)
	if err != nil {
		pkgApp.LogError(ctx, appLogger, "Erro ao inicializar o barramento de eventos", err, map[string]interface{}{
			"backend": cfg.Events.Backend,
		})
		os.Exit(1)
	}

	sessionSlice := session.NewSessionSlice(
		sessionInfra.NewHTTPGateway(cfg.Gateway.BaseURL, cfg.Gateway.Timeout, appLogger),
		medium,
		notifier,
		appLogger,
	)

	marketplaceSlice := marketplace.NewMarketplaceSlice(
		medium,
		pkgInfra.NewIDGenerator(),
		sessionSlice.Store(),
		eventBus,
		appLogger,
	)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	sessionSlice.RegisterRoutes(router)
	marketplaceSlice.RegisterRoutes(router)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		appLogger.Info(ctx, "Sinal capturado", map[string]interface{}{"signal": sig.String()})
		cancel()
	}()

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info(ctx, "Servidor iniciando em "+cfg.HTTP.Addr, map[string]interface{}{
			"storage":  cfg.Storage.Backend,
			"notifier": cfg.Notifier.Backend,
			"events":   cfg.Events.Backend,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			pkgApp.LogError(ctx, appLogger, "Erro ao iniciar o servidor", err, nil)
			cancel()
		}
	}()

	<-ctx.Done()
	appLogger.Info(context.Background(), "Encerrando servidor...", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		pkgApp.LogError(context.Background(), appLogger, "Erro ao encerrar servidor", err, nil)
	}

	appLogger.Info(context.Background(), "Servidor encerrado", nil)
}

func openMedium(cfg config.StorageConfig, sharedRedis func() redis.UniversalClient, logger pkgApp.AppLogger, closers *[]io.Closer) (domain.Medium, error) {
	switch cfg.Backend {
	case "memory":
		return sharedInfra.NewInMemoryMedium(), nil
	case "file":
		return sharedInfra.NewFileMedium(cfg.Path, cfg.Namespace, logger)
	case "redis":
		return sharedInfra.NewRedisMedium(sharedRedis(), cfg.Namespace, logger), nil
	case "postgres":
		db, err := sharedInfra.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return sharedInfra.NewGormMedium(db, cfg.Namespace, logger)
	case "sqlite":
		medium, err := sharedInfra.OpenSQLiteMedium(cfg.SQLitePath, cfg.Namespace, logger)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, medium)
		return medium, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

type closableNotifier interface {
	sessionDomain.Notifier
	io.Closer
}

func openNotifier(cfg config.NotifierConfig, sharedRedis func() redis.UniversalClient, logger pkgApp.AppLogger) (closableNotifier, error) {
	switch cfg.Backend {
	case "channel":
		return sessionInfra.NewChannelNotifier(cfg.Topic, logger), nil
	case "redis":
		return sessionInfra.NewRedisNotifier(sharedRedis(), cfg.Topic, logger)
	default:
		return nil, fmt.Errorf("unknown notifier backend %q", cfg.Backend)
	}
}

// openEventBus escolhe onde os eventos do marketplace circulam. simple entrega apenas no
// processo; os demais também publicam no broker para consumidores externos.
func openEventBus(cfg config.EventsConfig, sharedRedis func() redis.UniversalClient, logger pkgApp.AppLogger, closers *[]io.Closer) (marketplaceEventBus, error) {
	switch cfg.Backend {
	case "simple":
		return pkgInfra.NewSimpleEventBus[pkgDomain.Event[marketApp.MarketplaceEventData], marketApp.MarketplaceEventData](logger), nil
	case "channel":
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillAdapter.NewWatermillLoggerAdapter(logger))
		*closers = append(*closers, pubSub)
		return channelsAdapter.NewWatermillEventBus[pkgDomain.Event[marketApp.MarketplaceEventData], marketApp.MarketplaceEventData](pubSub, logger), nil
	case "redis":
		bus, err := redisAdapter.NewRedisEventBus[pkgDomain.Event[marketApp.MarketplaceEventData], marketApp.MarketplaceEventData](sharedRedis(), cfg.Group, cfg.Consumer, logger)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, bus)
		return bus, nil
	case "kafka":
		bus, err := kafkaAdapter.NewKafkaEventBus[pkgDomain.Event[marketApp.MarketplaceEventData], marketApp.MarketplaceEventData](cfg.KafkaBrokers, cfg.Group, logger)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, bus)
		return bus, nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}
