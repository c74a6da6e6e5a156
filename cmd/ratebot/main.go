package main

import (
	"log"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	corecmd "github.com/m3rciful/ratebot/core/cmd"
	"github.com/m3rciful/ratebot/internal/app"
	"github.com/m3rciful/ratebot/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env loaded: %v", err)
	}

	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: app.Bootstrap,
	})
	if err != nil {
		log.Fatalf("ratebot: %v", err)
	}
}
