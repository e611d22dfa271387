// cmd/auction-worker/main.go
package main

import (
	"context"
	"time"

	"gavel/internal/pkg/bootstrap"
	"gavel/internal/pkg/logger"
	"gavel/internal/pkg/mq"
	"gavel/internal/pkg/redis"
	"gavel/internal/service/auction/application"
	"gavel/internal/service/auction/domain"
	"gavel/internal/service/auction/infrastructure"
	"gavel/internal/service/auction/infrastructure/adapter"
	"gavel/internal/service/auction/infrastructure/rule"
	"gavel/internal/service/auction/interfaces"
	"gavel/internal/zookeeper"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const (
	serviceName     = "auction-worker"
	consumerGroupID = "auction-worker-group"
	pollInterval    = time.Second
)

// main 启动两个常驻组件：到期任务轮询器（Redis -> Kafka）和任务消费者（Kafka -> 业务处理）。
func main() {
	runCtx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(runCtx)

	var (
		redisClient *redis.Client
		publisher   *adapter.EventsKafkaAdapter
		consumer    *interfaces.JobConsumerAdapter
		zkConn      *zookeeper.Conn
	)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8085,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			ctx := context.Background()
			cfg := appCtx.Config

			db, err := gorm.Open(mysql.Open(cfg.Infra.MySQL.DSN), &gorm.Config{})
			if err != nil {
				logger.Ctx(ctx).Fatal().Err(err).Msg("failed to connect to mysql")
			}
			repo := infrastructure.NewGormAuctionRepository(db)
			if err := repo.AutoMigrate(); err != nil {
				logger.Ctx(ctx).Fatal().Err(err).Msg("failed to migrate auction schema")
			}

			redisClient = redis.NewClient(cfg.Infra.Redis.Addr)
			scheduler, err := adapter.NewSchedulerRedisAdapter(redisClient)
			if err != nil {
				logger.Ctx(ctx).Fatal().Err(err).Msg("failed to initialize job scheduler")
			}

			publisher = adapter.NewEventsKafkaAdapter(cfg.Infra.Kafka.Brokers)
			bidders := adapter.NewBidderGormAdapter(db)

			policy, err := rule.NewCELBidPolicy(cfg.App.BidPolicy)
			if err != nil {
				logger.Ctx(ctx).Fatal().Err(err).Msg("invalid bid policy expression")
			}

			svc := application.NewAuctionService(
				repo, repo, scheduler, publisher, bidders, policy,
				domain.StopwatchRange{
					Min: cfg.App.StopwatchMinSeconds,
					Max: cfg.App.StopwatchMaxSeconds,
				},
				otel.Tracer(serviceName),
			)

			registry := application.NewJobRegistry()
			application.RegisterAuctionJobs(registry, svc)
			retrier := application.NewRetrier(scheduler)

			// 同一拍卖的任务靠 zk 锁串行化；zk 不可用时退化为无锁执行
			if len(cfg.Infra.Zookeeper.Addrs) > 0 {
				zkConn, err = zookeeper.Connect(cfg.Infra.Zookeeper.Addrs)
				if err != nil {
					logger.Ctx(ctx).Warn().Err(err).Msg("zookeeper unavailable, running without dispatch locks")
					zkConn = nil
				}
			}

			reader := mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, interfaces.JobsTopic, consumerGroupID)
			consumer = interfaces.NewJobConsumerAdapter(reader, registry, retrier, zkConn)
			if err := consumer.Start(gctx); err != nil {
				logger.Ctx(ctx).Fatal().Err(err).Msg("failed to start job consumer")
			}

			poller := interfaces.NewJobPoller(scheduler, cfg.Infra.Kafka.Brokers, pollInterval)
			g.Go(func() error {
				return poller.Run(gctx)
			})
		},
		OnShutdown: []func(ctx context.Context){
			func(ctx context.Context) {
				cancel()
				if err := g.Wait(); err != nil && err != context.Canceled {
					logger.Ctx(ctx).Error().Err(err).Msg("job poller exited with error")
				}
				if consumer != nil {
					consumer.Stop(ctx)
				}
				if zkConn != nil {
					zkConn.Close()
				}
				if publisher != nil {
					if err := publisher.Close(); err != nil {
						logger.Ctx(ctx).Error().Err(err).Msg("error closing event publisher")
					}
				}
				if redisClient != nil {
					if err := redisClient.Close(); err != nil {
						logger.Ctx(ctx).Error().Err(err).Msg("error closing redis client")
					}
				}
			},
		},
	})
}
