package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/utrading/utrading-boost-monitor/config"
	"github.com/utrading/utrading-boost-monitor/internal/broadcast"
	"github.com/utrading/utrading-boost-monitor/internal/cleaner"
	"github.com/utrading/utrading-boost-monitor/internal/dal"
	"github.com/utrading/utrading-boost-monitor/internal/dao"
	"github.com/utrading/utrading-boost-monitor/internal/feed"
	"github.com/utrading/utrading-boost-monitor/internal/hunter"
	"github.com/utrading/utrading-boost-monitor/internal/monitor"
	"github.com/utrading/utrading-boost-monitor/internal/payment"
	"github.com/utrading/utrading-boost-monitor/internal/pinorder"
	"github.com/utrading/utrading-boost-monitor/internal/server"
	"github.com/utrading/utrading-boost-monitor/pkg/logger"
	"github.com/utrading/utrading-boost-monitor/pkg/sigproc"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "cfg.toml", "config file path")
	flag.Parse()

	// 加载配置
	if err := config.Init(configFile); err != nil {
		panic(err)
	}
	cfg := config.Get()

	// 初始化日志
	if err := initLogger(cfg); err != nil {
		panic("init logger failed: " + err.Error())
	}
	defer logger.Close()

	logger.Info().Msg("boost_monitor service starting...")

	// 初始化指标
	monitor.InitMetrics()

	// 初始化数据库
	dal.InitMysqlDB(cfg.MySQL)

	// 自动迁移表结构
	dal.AutoMigrate()

	// 初始化 DAO
	dao.InitDAO(dal.MySQL())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 推送中心，由组合根持有并按引用下发
	hub := broadcast.NewHub()

	// NATS 事件镜像（endpoint 为空时不启用）
	var mirror *broadcast.NatsMirror
	var mirrorRef monitor.PublisherRef
	if cfg.NATS.Endpoint != "" {
		var err error
		mirror, err = broadcast.NewNatsMirror(cfg.NATS.Endpoint)
		if err != nil {
			logger.Fatal().Err(err).Msg("init nats mirror failed")
		}
		hub.SetMirror(mirror)
		mirrorRef = mirror
	}

	// 同步循环
	feedClient := feed.NewClient(cfg.Monitor.BoostsURL, cfg.Monitor.PairsURL, cfg.Monitor.FetchTimeout)
	tokenHunter := hunter.New(cfg.Monitor, feedClient, hub)
	tokenHunter.Start()

	// 置顶支付流程
	verifier := payment.NewVerifier(cfg.Pin.RPCURL, cfg.Pin.Tolerance, cfg.Monitor.FetchTimeout)
	policy := pinorder.NewMaxPinnedPolicy(cfg.Pin.MaxPinned)
	workflow := pinorder.New(cfg.Pin, verifier, hub, policy)
	workflow.Start()

	// 数据清理器
	dataCleaner := cleaner.NewCleaner(hub, cfg.Monitor.TokenMaxAge)
	dataCleaner.Start()

	// 对外 HTTP 服务
	httpServer := server.New(cfg.HTTP, hub, workflow)
	httpServer.Start()

	// 健康检查服务器
	healthServer := monitor.NewHealthServer(cfg.HTTP.HealthServerAddr, hub, mirrorRef, tokenHunter)
	if err := healthServer.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("start health server failed")
	}

	logger.Info().
		Str("http_addr", cfg.HTTP.Addr).
		Str("health_addr", cfg.HTTP.HealthServerAddr).
		Str("boosts_url", cfg.Monitor.BoostsURL).
		Msg("boost_monitor service started successfully")

	// 优雅关闭
	sigproc.GracefulShutdown(func(sig os.Signal) {
		logger.Info().Str("signal", sig.String()).Msg("shutting down...")

		// 停止发现新事件
		tokenHunter.Stop()

		// 停止支付轮询
		workflow.Stop()

		// 停止数据清理器
		dataCleaner.Stop()

		// 关闭对外 HTTP 服务
		httpServer.Stop()

		// 断开所有推送连接
		hub.Close()
		if mirror != nil {
			mirror.Close()
		}

		// 关闭健康检查服务器
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		healthServer.Stop(shutdownCtx)

		// 关闭配置重载
		config.Stop()

		// 关闭数据库
		dal.CloseMySQL()

		logger.Info().Msg("boost_monitor service stopped")
		cancel()
	})

	<-ctx.Done()
}

func initLogger(cfg *config.Config) error {
	return logger.NewBuilder().
		SetMaxSize(cfg.Logger.MaxSize).
		SetMaxBackups(cfg.Logger.MaxBackups).
		SetMaxAge(cfg.Logger.MaxAge).
		SetLevel(cfg.Logger.Level).
		EnableCompression(cfg.Logger.Compress).
		EnableConsoleOutput(cfg.Logger.Console).
		Build()
}
