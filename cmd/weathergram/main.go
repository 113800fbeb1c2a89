package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"weathergram/bot"
	"weathergram/core/bootstrap"
	"weathergram/core/buildinfo"
	"weathergram/core/cmd"
	coreconfig "weathergram/core/config"
)

type configCarrier struct {
	cfg *coreconfig.Config
}

func (c configCarrier) CoreConfig() *coreconfig.Config { return c.cfg }

func main() {
	// Secrets come from the environment; .env is a local convenience.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("dotenv load skipped: %v", err)
	}

	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Println(buildinfo.String())
		return
	}

	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			cfg, err := coreconfig.Load(path)
			if err != nil {
				return nil, err
			}
			return configCarrier{cfg: cfg}, nil
		},
		Bootstrap: func(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			cfg := carrier.CoreConfig()
			res, err := bootstrap.Run(bootstrap.Options{Config: cfg})
			if err != nil {
				return nil, err
			}
			return bot.New(cfg, res)
		},
	})
	if err != nil {
		log.Fatalf("weathergram: %v", err)
	}
}
