package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jwt-auth-service/internal/config"
	"github.com/iliyamo/jwt-auth-service/internal/database"
	"github.com/iliyamo/jwt-auth-service/internal/handler"
	"github.com/iliyamo/jwt-auth-service/internal/queue"
	"github.com/iliyamo/jwt-auth-service/internal/repository"
	"github.com/iliyamo/jwt-auth-service/internal/router"
	"github.com/iliyamo/jwt-auth-service/internal/store"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env wins
	cfg := config.Load()

	// The database is the system of record for users. Without it the
	// service must not serve traffic at all.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("database: %v", err)
	}
	cancel()

	// Redis is optional: when unreachable the in-process simulator takes
	// over with identical behavior, minus persistence across restarts.
	var kv store.KV
	if client := config.NewRedisClient(); client != nil {
		kv = store.NewRedisStore(client)
		log.Printf("redis: connected")
	} else {
		kv = store.NewMemoryStore()
		log.Printf("redis: unreachable, using in-memory store")
	}
	defer kv.Close()

	users := repository.NewUserRepo(db)
	sqlLedger := repository.NewRevokedTokenRepo(db)
	kvLedger := repository.NewRevokedTokenCache(kv)
	sqlAudit := repository.NewAuditRepo(db)
	kvAudit := repository.NewAuditCache(kv)
	sessions := repository.NewSessionCache(kv)

	sqlHandler := handler.NewAuthHandler(cfg, users, sqlLedger, sqlAudit, nil, "sql")
	redisHandler := handler.NewAuthHandler(cfg, users, kvLedger, kvAudit, sessions, "redis")
	health := handler.NewHealthHandler(db, kv)

	go queue.StartAuditConsumer()

	e := echo.New()
	router.RegisterRoutes(e, router.Deps{
		Cfg:       cfg,
		SQL:       sqlHandler,
		Redis:     redisHandler,
		Health:    health,
		Users:     users,
		SQLLedger: sqlLedger,
		KVLedger:  kvLedger,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
