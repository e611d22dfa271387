// cmd/auction-service/main.go
package main

import (
	"context"

	"gavel/internal/pkg/bootstrap"
	"gavel/internal/pkg/logger"
	"gavel/internal/pkg/redis"
	"gavel/internal/service/auction/application"
	"gavel/internal/service/auction/domain"
	"gavel/internal/service/auction/infrastructure"
	"gavel/internal/service/auction/infrastructure/adapter"
	"gavel/internal/service/auction/infrastructure/rule"
	"gavel/internal/service/auction/interfaces"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const serviceName = "auction-service"

// main 是拍卖 API 进程的组装根：建连、装配依赖、注册路由。
func main() {
	var (
		redisClient *redis.Client
		publisher   *adapter.EventsKafkaAdapter
	)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8084,
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

			interfaces.NewAuctionHandler(svc).RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: []func(ctx context.Context){
			func(ctx context.Context) {
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
