package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"roomrelay/internal/config"
	"roomrelay/internal/database/db_client"
	"roomrelay/internal/eventlog"
	"roomrelay/internal/http/http_server"
	"roomrelay/internal/redis/redis_client"
	"roomrelay/internal/rooms"
	"roomrelay/internal/syncevents"
	"roomrelay/internal/syncstats"
	"roomrelay/internal/ws"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

//go:generate go tool swag init --v3.1 -g main.go -o api_specs --outputTypes json,yaml

const eventQueue = 4096

var (
	Log, _ = zap.NewDevelopment()
)

//	@title			roomrelay operator API
//	@version		1.0
//	@description	Health and room statistics of the relay. Clients talk to /ws.
//	@BasePath		/
func main() {
	zap.ReplaceGlobals(Log)

	var err error
	var cfg *config.Config
	var redisClient *redis.Client
	var pgDb *sql.DB
	var events eventlog.Sink = eventlog.Nop

	// 1. Load configuration
	cfg, err = config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.LogFormat == "json" {
		if Log, err = zap.NewProduction(); err != nil {
			panic(err)
		}
		zap.ReplaceGlobals(Log)
	}
	defer Log.Sync()
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis event stream (optional)
	if cfg.RedisEnabled {
		redisClient, err = redis_client.NewRedisClient(ctx, cfg.RedisHost, cfg.RedisPort)
		if err != nil {
			Log.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()

		stream := eventlog.NewRedisStream(redisClient, cfg.EventStream, eventQueue)
		go stream.Run(ctx)
		events = stream
		Log.Debug("Redis event stream enabled", zap.String("stream", cfg.EventStream))
	}

	// 4. Postgres event archive (optional, fed from the stream)
	if cfg.PostgresEnabled {
		pgDb, err = db_client.Open(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
		if err != nil {
			Log.Fatal("pg-open", zap.Error(err))
		}
		defer pgDb.Close()
		if err := db_client.EnsureSchema(ctx, pgDb); err != nil {
			Log.Fatal("pg-schema", zap.Error(err))
		}
		go syncevents.Run(ctx, redisClient, pgDb, cfg.EventStream)
	}

	// 5. Room core, owned by the hub for the life of the process
	handler, err := rooms.NewHandler(rooms.Limits{
		MinPerRoom: cfg.MinPerRoom,
		MaxPerRoom: cfg.MaxPerRoom,
	}, events, Log.Named("rooms"))
	if err != nil {
		Log.Fatal("Failed to create room handler", zap.Error(err))
	}
	hub := ws.NewHub(handler, cfg.HubQueue)
	go hub.Run(ctx)

	// 6. Background: stats mirror
	if redisClient != nil {
		syncstats.Run(ctx, redisClient, hub, cfg.StatsInterval)
	}

	// 7. Initialize the WS server
	wsSrv := ws.NewWsServer(hub, ws.Options{
		ReadLimit:  cfg.WsReadLimit,
		SendBuffer: cfg.WsSendBuffer,
	})

	// 8. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, hub)
	go func() {
		<-ctx.Done()
		_ = httpServer.Dispose()
	}()
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
	<-hub.Done()
	Log.Info("relay stopped")
}
