package server

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"gamebank/internal/api"
	"gamebank/internal/api/middleware"
	"gamebank/internal/app"
	"gamebank/internal/bankapi"
	"gamebank/internal/worker"
)

var App *bankapi.App
var AppSweep *bankapi.AppSweep
var Pool *worker.Pool

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.String(429, "Too many requests. Try again in "+time.Until(info.ResetTime).String())
}

// RegisterRoutes wires the ledger endpoints onto a router. Split out of
// ApiInit so tests can mount the same routes on their own engine and store.
func RegisterRoutes(router *gin.Engine, appHandle *bankapi.App, pool *worker.Pool) {
	router.Use(func(c *gin.Context) {
		c.Set("app", appHandle)
		if pool != nil {
			c.Set("pool", pool)
		}
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	users := router.Group("/users").Use(middleware.Auth())
	{
		users.POST("", api.TouchUser)
		users.POST("/register", api.RegisterUser)
		users.GET("/lookup", api.LookupUser)
		users.GET("/:telegramId", api.GetUser)
		users.GET("/:telegramId/balance", api.GetBalance)
		users.GET("/:telegramId/tx", api.GetTransactionsList)
	}
	router.GET("/players", middleware.Auth(), api.GetPlayersList)
	tx := router.Group("/tx").Use(middleware.Auth())
	{
		tx.POST("/transfer", api.Transfer)
		tx.POST("/adjust", api.Adjust)
	}
	requests := router.Group("/requests").Use(middleware.Auth())
	{
		requests.POST("", api.CreateRequest)
		requests.GET("/:token", api.ValidateRequest)
		requests.POST("/:token/redeem", api.RedeemRequest)
	}
}

func ApiInit() { // Run Api Server
	ConfigLoad()
	App = bankapi.Init()
	Pool = worker.NewPool(GlobalConfig.WorkerSpeed, GlobalConfig.WorkerQueue)
	router := gin.Default()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	// Each ip is limited to GlobalConfig.RateLimit requests per second
	store := ratelimit.RedisStore(&ratelimit.RedisOptions{
		RedisClient: redis.NewClient(&redis.Options{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       1,
		}),
		Rate:  time.Second,
		Limit: uint(GlobalConfig.RateLimit),
	})
	mw := ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})
	router.Use(mw)
	origins := GlobalConfig.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://0.0.0.0:3000", "http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowHeaders:  []string{"Origin", "Access-Control-Allow-Origin", "Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With"},
		ExposeHeaders: []string{"Content-Length"},
		AllowMethods:  []string{"GET, POST, OPTIONS, PUT, DELETE"},
		MaxAge:        24 * time.Hour,
	}))
	RegisterRoutes(router, App, Pool)
	fmt.Println("[ Gamebank API is up and listening to " + GlobalConfig.Port + " ]")
	if GlobalConfig.Ssl {
		if err := router.RunTLS(GlobalConfig.Port, GlobalConfig.SslCert, GlobalConfig.SslKey); err != nil {
			log.Fatal("Failed to run Gamebank API on "+GlobalConfig.Port+": ", err)
		}
		return
	}
	if err := router.Run(GlobalConfig.Port); err != nil {
		log.Fatal("Failed to run Gamebank API on "+GlobalConfig.Port+": ", err)
	}
}

func SweepInit() { // Run Payment Request Sweeper
	ConfigLoad()
	AppSweep = bankapi.InitSweep()
	go app.DoEvery(time.Duration(GlobalConfig.SweepMinutes)*time.Minute, func(time.Time) {
		purged, err := AppSweep.PurgeDeadRequests(context.Background())
		if err != nil {
			Logger.Error(fmt.Sprintf("sweep: %v", err))
			return
		}
		if purged > 0 {
			Logger.Info(fmt.Sprintf("sweep: purged %d dead payment requests", purged))
		}
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(bankapi.TypeRequestPurge, AppSweep.HandleRequestPurgeTask)
	fmt.Println("[ Gamebank sweeper is up ]")
	if err := AppSweep.Aqs.Run(mux); err != nil {
		log.Fatal("Failed to run Gamebank sweeper: ", err)
	}
}
