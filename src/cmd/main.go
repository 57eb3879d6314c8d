package main

import (
	"github.com/sirupsen/logrus"

	cfg "foodscan/src/configuration"
	server "foodscan/src/server"
)

func main() {
	config := cfg.ReadProperties()

	level, err := logrus.ParseLevel(config.LogLevel)
	if err != nil {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)

	server.RunServer(config)
}
