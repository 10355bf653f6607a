package main

import (
	"fmt"
	"os"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/cli"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/logger"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	log := logger.NewDefault()
	logger.SetDefaultLogger(log)

	err := cli.NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
