package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wyfcoding/papertrading/internal/fixedpoint"
	marketdataapp "github.com/wyfcoding/papertrading/internal/marketdata/application"
	"github.com/wyfcoding/papertrading/internal/marketdata/interfaces/consumer"
	marketdatahttp "github.com/wyfcoding/papertrading/internal/marketdata/interfaces/http"
	positionapp "github.com/wyfcoding/papertrading/internal/position/application"
	positiondomain "github.com/wyfcoding/papertrading/internal/position/domain"
	positionhttp "github.com/wyfcoding/papertrading/internal/position/interfaces/http"
	riskapp "github.com/wyfcoding/papertrading/internal/risk/application"
	riskdomain "github.com/wyfcoding/papertrading/internal/risk/domain"
	riskhttp "github.com/wyfcoding/papertrading/internal/risk/interfaces/http"
	"github.com/wyfcoding/papertrading/pkg/config"
	"github.com/wyfcoding/papertrading/pkg/logger"
	"github.com/wyfcoding/papertrading/pkg/metrics"
	"github.com/wyfcoding/papertrading/pkg/middleware"
	"github.com/wyfcoding/papertrading/pkg/mq"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

var configPath = flag.String("config", "configs/riskgateway/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. Config
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. Logger
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Metrics
	m := metrics.New(cfg.ServiceName)
	if cfg.Metrics.Enabled {
		if err := m.Register(); err != nil {
			logger.Fatal(ctx, "Failed to register metrics", "error", err)
		}
		if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Fatal(ctx, "Failed to start metrics server", "error", err)
		}
	}

	// 4. Domain configuration
	riskConfig, err := parseRiskConfig(cfg.Risk)
	if err != nil {
		logger.Fatal(ctx, "Invalid risk configuration", "error", err)
	}
	initialBalance, err := fixedpoint.FromString(cfg.Risk.InitialBalance)
	if err != nil {
		logger.Fatal(ctx, "Invalid initial balance", "error", err)
	}
	fees, err := parseFees(cfg.Fees)
	if err != nil {
		logger.Fatal(ctx, "Invalid fee configuration", "error", err)
	}

	// 5. Application services
	riskService := riskapp.NewRiskService(riskConfig, initialBalance, m)
	ledgerService := positionapp.NewLedgerService(initialBalance, fees, riskService, m)
	bookManager := marketdataapp.NewBookManager()

	// 6. Kafka consumer for order book snapshots
	snapshotHandler := consumer.NewSnapshotHandler(bookManager, m)
	kafkaConsumer, err := mq.NewConsumer(mq.KafkaConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.GroupID,
		SessionTimeout: cfg.Kafka.SessionTimeout,
	}, cfg.Kafka.SnapshotTopic)
	if err != nil {
		logger.Fatal(ctx, "Failed to create Kafka consumer", "error", err)
	}

	// 7. HTTP interface
	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(
		middleware.GinLoggingMiddleware(),
		middleware.GinRecoveryMiddleware(),
		middleware.GinCORSMiddleware(),
	)

	riskhttp.NewRiskHandler(riskService).RegisterRoutes(&router.RouterGroup)
	positionhttp.NewPositionHandler(ledgerService).RegisterRoutes(&router.RouterGroup)
	marketdatahttp.NewHandler(bookManager).RegisterRoutes(&router.RouterGroup)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	// 8. Start
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info(ctx, "HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.Info(ctx, "Snapshot consumer starting", "topic", cfg.Kafka.SnapshotTopic)
		for {
			msg, err := kafkaConsumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error(ctx, "Failed to read snapshot message", "error", err)
				continue
			}
			if err := snapshotHandler.Handle(ctx, msg); err != nil {
				logger.Error(ctx, "Failed to handle snapshot message",
					"offset", msg.Offset,
					"error", err,
				)
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info(context.Background(), "Shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error(context.Background(), "HTTP server shutdown failed", "error", err)
		}
		if err := kafkaConsumer.Close(); err != nil {
			logger.Error(context.Background(), "Kafka consumer close failed", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error(context.Background(), "Server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info(context.Background(), "Server stopped")
}

// parseRiskConfig 将配置中的十进制字符串解析为风控限额
func parseRiskConfig(cfg config.RiskConfig) (riskdomain.Config, error) {
	maxPositionSize, err := fixedpoint.FromString(cfg.MaxPositionSize)
	if err != nil {
		return riskdomain.Config{}, fmt.Errorf("max_position_size: %w", err)
	}
	maxTotalExposure, err := fixedpoint.FromString(cfg.MaxTotalExposure)
	if err != nil {
		return riskdomain.Config{}, fmt.Errorf("max_total_exposure: %w", err)
	}
	maxDrawdownPct, err := fixedpoint.FromString(cfg.MaxDrawdownPct)
	if err != nil {
		return riskdomain.Config{}, fmt.Errorf("max_drawdown_pct: %w", err)
	}
	maxLossPerTrade, err := fixedpoint.FromString(cfg.MaxLossPerTrade)
	if err != nil {
		return riskdomain.Config{}, fmt.Errorf("max_loss_per_trade: %w", err)
	}
	minBalanceThreshold, err := fixedpoint.FromString(cfg.MinBalanceThreshold)
	if err != nil {
		return riskdomain.Config{}, fmt.Errorf("min_balance_threshold: %w", err)
	}

	return riskdomain.Config{
		MaxPositionSize:     maxPositionSize,
		MaxTotalExposure:    maxTotalExposure,
		MaxDrawdownPct:      maxDrawdownPct,
		MaxLossPerTrade:     maxLossPerTrade,
		MaxOrdersPerMinute:  cfg.MaxOrdersPerMinute,
		MinBalanceThreshold: minBalanceThreshold,
	}, nil
}

// parseFees 将配置中的费率字符串解析为手续费表
func parseFees(cfg config.FeesConfig) (positiondomain.FeeSchedule, error) {
	makerRate, err := fixedpoint.FromString(cfg.MakerRate)
	if err != nil {
		return positiondomain.FeeSchedule{}, fmt.Errorf("maker_rate: %w", err)
	}
	takerRate, err := fixedpoint.FromString(cfg.TakerRate)
	if err != nil {
		return positiondomain.FeeSchedule{}, fmt.Errorf("taker_rate: %w", err)
	}
	return positiondomain.FeeSchedule{MakerRate: makerRate, TakerRate: takerRate}, nil
}
