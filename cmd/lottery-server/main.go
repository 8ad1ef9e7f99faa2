package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/lottery-central-poc/internal/lottery/producer"
	"github.com/radieske/lottery-central-poc/internal/lottery/registry"
	"github.com/radieske/lottery-central-poc/internal/lottery/server"
	"github.com/radieske/lottery-central-poc/internal/lottery/store"
	sharedcache "github.com/radieske/lottery-central-poc/internal/shared/cache"
	"github.com/radieske/lottery-central-poc/internal/shared/config"
	"github.com/radieske/lottery-central-poc/internal/shared/db"
	"github.com/radieske/lottery-central-poc/internal/shared/logger"
	"github.com/radieske/lottery-central-poc/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// health check acumula pings dos backends efetivamente em uso
	var healthChecks []metrics.HealthFunc

	// Backend de persistência das apostas
	var betStore store.Store
	switch cfg.StorageBackend {
	case "postgres":
		pg, err := db.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			log.Fatal("postgres connect", zap.Error(err))
		}
		defer pg.Close()
		healthChecks = append(healthChecks, pg.PingContext)
		betStore = store.NewPostgres(pg)
	default:
		betStore = store.NewCSV(cfg.StorageFilepath)
	}

	// Backend da barreira de agências
	var agencyRegistry registry.Registry
	switch cfg.RegistryBackend {
	case "redis":
		rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
		if err != nil {
			log.Fatal("redis connect", zap.Error(err))
		}
		defer rdb.Close()
		healthChecks = append(healthChecks, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		agencyRegistry = registry.NewRedis(rdb)
	default:
		agencyRegistry = registry.NewMemory()
	}

	// Publisher de eventos bet_received (opcional)
	var publ server.Publisher
	if cfg.EventsEnabled {
		writer := kafkago.NewWriter(kafkago.WriterConfig{
			Brokers:  strings.Split(cfg.KafkaBrokers, ","),
			Topic:    cfg.TopicBetReceived,
			Balancer: &kafkago.LeastBytes{},
		})
		defer writer.Close()
		publ = producer.NewKafkaPublisher(writer, cfg.TopicBetReceived)
	}

	// Métricas Prometheus do ciclo de vida do concurso
	accepted := prometheus.NewCounter(prometheus.CounterOpts{Name: "lottery_connections_accepted_total", Help: "conexões aceitas"})
	betsStored := prometheus.NewCounter(prometheus.CounterOpts{Name: "lottery_bets_stored_total", Help: "apostas persistidas"})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{Name: "lottery_batches_rejected_total", Help: "lotes rejeitados por malformação"})
	winnerQueries := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "lottery_winner_queries_total", Help: "consultas de ganadores por resultado"}, []string{"result"})
	prometheus.MustRegister(accepted, betsStored, rejected, winnerQueries)

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		for _, check := range healthChecks {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	})

	srv := &server.Server{
		Log:           log,
		Registry:      agencyRegistry,
		Store:         betStore,
		Publisher:     publ,
		WinningNumber: cfg.WinningNumber,

		OnAccepted:      func() { accepted.Inc() },
		OnBetsStored:    func(n int) { betsStored.Add(float64(n)) },
		OnBatchRejected: func() { rejected.Inc() },
		OnWinnerQuery:   func(result string) { winnerQueries.WithLabelValues(result).Inc() },
	}

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM); o cancelamento fecha
	// o socket de escuta e as conexões em voo terminam antes da saída
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := srv.Listen(cfg.ListenAddr); err != nil {
		log.Fatal("listen", zap.Error(err))
	}
	log.Info("lottery-server listening",
		zap.String("addr", cfg.ListenAddr),
		zap.Int("backlog", cfg.ListenBacklog),
		zap.Int("winning_number", cfg.WinningNumber),
		zap.String("storage", cfg.StorageBackend),
		zap.String("registry", cfg.RegistryBackend),
	)

	if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
	log.Info("lottery-server stopped")
}
