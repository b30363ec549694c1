package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/blues/launchpad/internal/access"
	"github.com/blues/launchpad/internal/config"
	"github.com/blues/launchpad/internal/confidential"
	"github.com/blues/launchpad/internal/event"
	"github.com/blues/launchpad/internal/issuer"
	"github.com/blues/launchpad/internal/ledger"
	"github.com/blues/launchpad/internal/logger"
	"github.com/blues/launchpad/internal/registry"
	"github.com/blues/launchpad/internal/repository"
	"github.com/blues/launchpad/internal/router"
	"github.com/blues/launchpad/internal/scheduler"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Init(cfg.Log); err != nil {
		logger.Fatal("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 初始化数据库
	db, err := repository.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 机密计算协处理器
	engineKey := cfg.Confidential.Key
	if engineKey == "" {
		logger.Warn("confidential.key not set, generating an ephemeral key; stored ciphertexts will not survive a restart")
	}
	engine, err := newEngine(engineKey, repository.NewVault(db))
	if err != nil {
		logger.Fatal("Failed to initialize confidential engine: %v", err)
	}
	logger.Info("Confidential engine address %s", engine.Address().Hex())

	// 登记与权限
	policyName, err := registry.ParsePolicy(cfg.Platform.Reregistration)
	if err != nil {
		logger.Fatal("Invalid reregistration policy: %v", err)
	}
	reg := registry.New(repository.NewRegistryStore(db), policyName)
	policy := access.New(cfg.Platform.OwnerAddress(), reg)

	// 发放方
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	deliverer, err := newDeliverer(ctx, cfg.Issuer)
	if err != nil {
		logger.Fatal("Failed to initialize issuer: %v", err)
	}
	allocations := issuer.NewLedgered(repository.NewAllocationStore(db), deliverer)

	// 事件分发
	eventStore := repository.NewEventStore(db)
	dispatcher, err := event.NewDispatcher(cfg.Events.Workers, event.NewStoreSink(eventStore), event.LogSink{})
	if err != nil {
		logger.Fatal("Failed to initialize event dispatcher: %v", err)
	}

	// 账本
	l, err := ledger.New(ledger.Config{
		Store:          repository.NewLaunchStore(db),
		Confidential:   engine,
		Policy:         policy,
		Issuer:         allocations,
		Emitter:        dispatcher,
		Self:           engine.Address(),
		FeeBasisPoints: cfg.Platform.FeeBasisPoints,
	})
	if err != nil {
		logger.Fatal("Failed to initialize ledger: %v", err)
	}

	// 启动定时任务
	tasks, err := scheduler.NewManager()
	if err != nil {
		logger.Fatal("Failed to create task manager: %v", err)
	}
	if cfg.Task.FinalizeInterval > 0 {
		job := scheduler.NewFinalizeJob(l, policy.Owner(), time.Duration(cfg.Task.FinalizeInterval)*time.Second, cfg.Task.FinalizeBatch)
		if err := tasks.Register(job); err != nil {
			logger.Fatal("%v", err)
		}
	}
	if cfg.Task.RetryInterval > 0 {
		job := scheduler.NewAllocationRetryJob(allocations, time.Duration(cfg.Task.RetryInterval)*time.Second, cfg.Task.RetryBatch)
		if err := tasks.Register(job); err != nil {
			logger.Fatal("%v", err)
		}
	}
	tasks.Start()

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(router.Deps{
		Ledger:   l,
		Registry: reg,
		Policy:   policy,
		Engine:   engine,
		Issuer:   allocations,
		Events:   eventStore,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	go func() {
		logger.Info("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown: %v", err)
	}
	tasks.Stop()
	dispatcher.Close()
	cancel()

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Info("Server exited")
}

func newEngine(keyHex string, vault confidential.Vault) (*confidential.Engine, error) {
	if keyHex == "" {
		return confidential.NewEngine(nil, vault)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return nil, err
	}
	return confidential.NewEngine(key, vault)
}

func newDeliverer(ctx context.Context, cfg config.IssuerConfig) (issuer.Deliverer, error) {
	if cfg.Mode == "chain" {
		d, err := issuer.Dial(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("Chain issuer ready, sender %s", d.Sender().Hex())
		return d, nil
	}
	return issuer.LogDeliverer{}, nil
}
