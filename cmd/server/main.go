package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/andeanbmx/race-manager/internal/config"
	"github.com/andeanbmx/race-manager/internal/database"
	"github.com/andeanbmx/race-manager/internal/handler"
	"github.com/andeanbmx/race-manager/internal/queue"
	"github.com/andeanbmx/race-manager/internal/repository"
	"github.com/andeanbmx/race-manager/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: without it the rate limiter and response cache
	// degrade to pass-through.
	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	riders := repository.NewRiderRepo(db)
	categories := repository.NewCategoryRepo(db)
	events := repository.NewEventRepo(db)
	registrations := repository.NewRegistrationRepo(db)
	races := repository.NewRaceRepo(db)
	results := repository.NewResultRepo(db)
	points := repository.NewPointsRepo(db)
	reports := repository.NewReportRepo(db)

	h := router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, users, tokens),
		Riders:        handler.NewRiderHandler(riders),
		Categories:    handler.NewCategoryHandler(categories),
		Events:        handler.NewEventHandler(events),
		Registrations: handler.NewRegistrationHandler(registrations, events, categories, riders),
		Races:         handler.NewRaceHandler(races, registrations, events, categories, points),
		Results:       handler.NewResultHandler(results),
		Reports:       handler.NewReportHandler(races, events, points, reports),
		Admin:         handler.NewAdminHandler(cfg, users, points),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, h, cfg, rdb)

	// Background audit-trail consumer; reconnects on its own.
	go func() {
		if err := queue.StartActivityConsumer(); err != nil {
			log.Printf("activity consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
