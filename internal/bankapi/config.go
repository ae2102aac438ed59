package bankapi

import (
	"os"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// App carries everything the API process needs: the ledger database, redis
// for rate limiting and balance-change events, and an asynq client used to
// schedule payment-request purges.
type App struct {
	Rdb      *redis.Client
	Db       *gorm.DB
	Aqc      *asynq.Client
	Settings Settings
}

// AppSweep is the sweeper process variant of App: same database, an asynq
// server instead of a client.
type AppSweep struct {
	Rdb      *redis.Client
	Db       *gorm.DB
	Aqs      *asynq.Server
	Settings Settings
}

// Settings holds the values the engine must receive explicitly instead of
// reading from the environment at call time.
type Settings struct {
	// SuperAdminId is the Telegram id of the bootstrap admin. The matching
	// user is granted IsAdmin at creation and the flag is never revoked by
	// later writes. Zero means no bootstrap admin.
	SuperAdminId int64
	// RequestTTL is the validity window of a payment request.
	RequestTTL time.Duration
}

const DefaultRequestTTL = 15 * time.Minute

func Init() *App {
	loadEnv()
	redisClient := setupRedis()
	db := setupDb()
	asynqClient := setupAsynqClient()

	return &App{
		Rdb:      redisClient,
		Db:       db,
		Aqc:      asynqClient,
		Settings: loadSettings(),
	}
}

func InitSweep() *AppSweep {
	loadEnv()
	redisClient := setupRedis()
	db := setupDb()
	asynqServer := setupAsynqServer()

	return &AppSweep{
		Rdb:      redisClient,
		Db:       db,
		Aqs:      asynqServer,
		Settings: loadSettings(),
	}
}

func loadSettings() Settings {
	settings := Settings{
		RequestTTL: DefaultRequestTTL,
	}
	if raw := os.Getenv("SUPER_ADMIN_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err == nil {
			settings.SuperAdminId = id
		}
	}
	if raw := os.Getenv("REQUEST_TTL_MINUTES"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err == nil && minutes > 0 {
			settings.RequestTTL = time.Duration(minutes) * time.Minute
		}
	}
	return settings
}

func setupRedis() *redis.Client {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
	return redisClient
}

func setupDb() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		panic("failed to connect to the db")
	}
	if err := Migrate(db); err != nil {
		panic("failed to run migrations")
	}
	return db
}

// Migrate creates or updates the ledger tables. Exposed so tests can run the
// engine against their own database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Transaction{},
		&PaymentRequest{},
	)
}

func setupAsynqClient() *asynq.Client {
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	return asynqClient
}

func setupAsynqServer() *asynq.Server {
	concurrency, err := strconv.Atoi(os.Getenv("SWEEPER_CONCURRENCY"))
	if err != nil {
		concurrency = 10
	}
	asynqServer := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueHygiene: 1,
			},
		},
	)
	return asynqServer
}

func loadEnv() {
	env := os.Getenv("APP_ENV")
	if "" == env {
		env = "development"
	}

	godotenv.Load(".env." + env + ".local")

	if "test" != env {
		godotenv.Load(".env.local")
	}
	godotenv.Load(".env." + env)
	godotenv.Load()
}
