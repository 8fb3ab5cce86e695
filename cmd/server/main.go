package main

import (
	"github.com/OFFIS-RIT/bibliograph/internal/server"
	"github.com/OFFIS-RIT/bibliograph/internal/util"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger/console"

	// database/sql driver for the postgres migration source.
	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	format := util.GetEnvString("LOG_FORMAT", "text")
	_, formatErr := console.ParseFormat(format)

	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  util.GetEnvBool("DEBUG", false),
		Format: format,
		Prefix: "bibliograph-server",
	}))
	if formatErr != nil {
		logger.Warn("[Server] Falling back to text logs", "err", formatErr)
	}

	if util.GetEnv("DATABASE_URL") == "" {
		logger.Fatal("[Server] DATABASE_URL is required to store compiled snapshots")
	}
	logger.Info("[Server] Starting snapshot API", "auth", util.GetEnv("AUTH_URL") != "")

	server.Init()
}
