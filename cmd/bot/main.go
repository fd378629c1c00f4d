package main

import (
	"log"
	"time"

	"dpsmart-bot/internal/board"
	"dpsmart-bot/internal/bot"
	"dpsmart-bot/internal/config"
	"dpsmart-bot/internal/database"
	"dpsmart-bot/internal/users"
	"dpsmart-bot/internal/worker"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	// Connect to Database
	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}

	// Connect to Redis
	rdb, err := database.ConnectRedis(cfg)
	if err != nil {
		log.Fatalf("Could not connect to redis: %v", err)
	}

	// Core services
	userService := users.NewService(db)
	boardService := board.NewService(db, userService)

	// Bot
	tgBot, err := bot.NewBot(cfg.BotToken, userService, boardService, cfg)
	if err != nil {
		log.Fatalf("Could not create bot: %v", err)
	}

	// Background deadline sweep
	checker := worker.NewChecker(rdb, tgBot.Instance, boardService, userService,
		time.Duration(cfg.SweepInterval)*time.Minute)
	go checker.Start()

	log.Println("Service started successfully")

	tgBot.Start()
}
