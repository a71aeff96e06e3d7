package main

import (
	"github.com/traceguard/backend/internal/server"
	"github.com/traceguard/backend/internal/util"
	"github.com/traceguard/backend/pkg/logger"
	"github.com/traceguard/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
