package router

import (
	"time"

	"github.com/blues/launchpad/internal/access"
	"github.com/blues/launchpad/internal/auth"
	"github.com/blues/launchpad/internal/confidential"
	"github.com/blues/launchpad/internal/handler"
	"github.com/blues/launchpad/internal/ledger"
	"github.com/blues/launchpad/internal/logger"
	"github.com/blues/launchpad/internal/registry"
	"github.com/gin-gonic/gin"
)

// Deps 路由依赖
type Deps struct {
	Ledger   *ledger.Ledger
	Registry *registry.Registry
	Policy   *access.Policy
	Engine   *confidential.Engine
	Issuer   handler.AllocationRetrier
	Events   handler.EventLister // 可选
	Now      func() time.Time    // 请求签名校验时钟，默认 time.Now
}

func Setup(deps Deps) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(requestLogger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "launchpad",
		})
	})

	signed := auth.Middleware(deps.Now)

	// API版本组
	v1 := r.Group("/api/v1")
	{
		keyHandler := handler.NewKeyHandler(deps.Engine)
		v1.GET("/confidential/key", keyHandler.GetKey)

		// 登记相关路由
		registryHandler := handler.NewRegistryHandler(deps.Registry, deps.Policy)
		reg := v1.Group("/registry")
		{
			reg.POST("", signed, registryHandler.Register)
			reg.GET("/:collection", registryHandler.Get)
		}

		// 发售相关路由
		launchHandler := handler.NewLaunchHandler(deps.Ledger, deps.Events)
		launches := v1.Group("/launches")
		{
			launches.POST("", signed, launchHandler.CreateLaunch)
			launches.GET("/:id", launchHandler.GetLaunch)
			launches.POST("/:id/purchase", signed, launchHandler.Purchase)
			launches.POST("/:id/finalize", signed, launchHandler.Finalize)
			launches.POST("/:id/claim", signed, launchHandler.Claim)
			launches.GET("/:id/participants", launchHandler.GetParticipants)
			launches.GET("/:id/participants/:address", launchHandler.GetParticipant)
			launches.GET("/:id/position", signed, launchHandler.GetPosition)
			launches.GET("/:id/totals", signed, launchHandler.GetTotals)
			launches.GET("/:id/events", launchHandler.GetEvents)
		}

		// 发放相关路由
		allocationHandler := handler.NewAllocationHandler(deps.Issuer, deps.Policy)
		v1.POST("/allocations/:id/retry", signed, allocationHandler.Retry)
	}

	return r
}

// requestLogger 使用项目日志记录请求
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-Caller, X-Signature, X-Timestamp")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
