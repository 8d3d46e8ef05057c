package main

import (
	"github.com/regtrace/lineage/internal/server"
	"github.com/regtrace/lineage/internal/util"
	"github.com/regtrace/lineage/pkg/logger"
	"github.com/regtrace/lineage/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.New(console.Options{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
