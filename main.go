package main

import (
	"github.com/wfunc/pongserver/config"
	"github.com/wfunc/pongserver/logger"
	"github.com/wfunc/pongserver/persistence"
	"github.com/wfunc/pongserver/server"
)

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database (optional: the simulation core is in-memory, the
	// database only keeps round summaries)
	var db persistence.Database
	if cfg.Database.Enabled {
		pg := cfg.Database.Postgres
		if cfg.Database.Driver == "sql" {
			db, err = persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
		} else {
			db, err = persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
		}
		if err != nil {
			logger.Log.Fatalf("Failed to connect to database: %v", err)
		}
		logger.Log.Info("Database connection successful.")
	} else {
		logger.Log.Info("Running without database; round summaries are not persisted.")
	}

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg, db)

	// Start Server
	logger.Log.Infof("Starting pong server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
