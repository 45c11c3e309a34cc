package router

import (
	"github.com/gin-gonic/gin"
	"github.com/inkstone/scs/internal/config"
	"github.com/inkstone/scs/internal/handler"
	"github.com/inkstone/scs/internal/identity"
	"github.com/inkstone/scs/internal/logic"
	"github.com/inkstone/scs/internal/oracle"
	"github.com/inkstone/scs/internal/storage"
	"gorm.io/gorm"
)

func Setup(db *gorm.DB, cfg *config.Config, chainProvider logic.ChainProvider) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "scriptchain-service",
		})
	})

	contentStore := storage.New(cfg.Storage)
	scorer := oracle.NewHTTPClient(cfg.Oracle)
	resolver := identity.NewHTTPResolver(cfg.Identity)

	// API版本组
	v1 := r.Group("/api/v1")
	v1.Use(identity.Middleware(resolver))
	{
		// 项目相关路由
		projectHandler := handler.NewProjectHandler(db, chainProvider)
		submissionHandler := newSubmissionHandler(db, chainProvider, contentStore, scorer)
		projects := v1.Group("/projects")
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.GetProjects)
			projects.GET("/:id", projectHandler.GetProject)
			projects.PUT("/:id", projectHandler.UpdateProject)
			projects.POST("/:id/anchor", projectHandler.AnchorProject)
			projects.GET("/:id/submissions", submissionHandler.GetProjectSubmissions)
		}

		// 投稿相关路由
		submissions := v1.Group("/submissions")
		{
			submissions.POST("", submissionHandler.CreateSubmission)
			submissions.GET("/:id", submissionHandler.GetSubmission)
			submissions.GET("/:id/content", submissionHandler.GetSubmissionContent)
			submissions.POST("/:id/mint", submissionHandler.MintSubmission)
			submissions.POST("/:id/accept", submissionHandler.AcceptSubmission)
			submissions.POST("/:id/reject", submissionHandler.RejectSubmission)
		}

		// 流水审计路由（内部使用）
		transactionHandler := handler.NewTransactionHandler(db)
		v1.GET("/transactions", transactionHandler.GetBySubject)
	}

	return r
}

func newSubmissionHandler(db *gorm.DB, chainProvider logic.ChainProvider,
	contentStore *storage.Client, scorer *oracle.HTTPClient) *handler.SubmissionHandler {
	// 评分服务未启用时传nil接口，避免非nil接口包裹nil指针
	var scoreClient oracle.Client
	if scorer != nil {
		scoreClient = scorer
	}
	return handler.NewSubmissionHandler(db, chainProvider, contentStore, scoreClient)
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Api-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
