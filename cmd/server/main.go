package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/hanyue/activity-seats/internal/config"
	"github.com/hanyue/activity-seats/internal/database"
	"github.com/hanyue/activity-seats/internal/handler"
	"github.com/hanyue/activity-seats/internal/queue"
	"github.com/hanyue/activity-seats/internal/repository"
	"github.com/hanyue/activity-seats/internal/router"
	"github.com/hanyue/activity-seats/internal/wechat"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// nil client disables rate limiting and response caching
	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	activities := repository.NewActivityRepo(db)
	seats := repository.NewSeatRepo(db)

	wx := wechat.NewClient(cfg.WeChatAppID, cfg.WeChatSecret)

	h := router.Handlers{
		Auth:     handler.NewAuthHandler(users, wx, cfg.JWTSecret, cfg.AuthTTLDays, cfg.BcryptCost, cfg.Env == "prod"),
		Profile:  handler.NewProfileHandler(users),
		Admin:    handler.NewAdminActivityHandler(activities, users),
		Activity: handler.NewActivityHandler(activities, seats),
		Seat:     handler.NewSeatHandler(seats),
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, h, cfg, rdb)

	// background consumer records seat eviction events; it reconnects on
	// its own and never takes the server down
	go func() {
		if err := queue.StartSeatEventConsumer(); err != nil {
			log.Printf("seat event consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
