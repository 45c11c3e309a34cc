package main

import (
	"github.com/gin-gonic/gin"
	"github.com/inkstone/scs/internal/chain"
	"github.com/inkstone/scs/internal/config"
	"github.com/inkstone/scs/internal/database"
	"github.com/inkstone/scs/internal/logger"
	"github.com/inkstone/scs/internal/logic"
	"github.com/inkstone/scs/internal/router"
	"github.com/inkstone/scs/internal/task"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	level := logger.ParseLogLevel(cfg.Log.Level)
	if cfg.Log.Output == "file" {
		fileLogger, err := logger.NewWithFileRotation(level, cfg.Log.File)
		if err != nil {
			logger.Fatal("Failed to initialize file logger: %v", err)
		}
		logger.SetDefaultLogger(fileLogger)
	}

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 链客户端延迟初始化：链不可用不阻塞服务启动
	chainProvider := func() (logic.AnchorClient, error) {
		client, err := chain.Get(cfg.Chain)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(db, cfg, chainProvider)

	// 启动对账任务
	task.Start(db, chainProvider, cfg)

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}
