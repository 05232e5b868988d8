package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/dicecrawl/dicecrawl/internal/config"
	"github.com/dicecrawl/dicecrawl/internal/server"
)

// Build metadata injected via -ldflags at build time
var (
	buildVersion = "dev"
	buildTime    = ""
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("gamed %s %s\n", buildVersion, buildTime)
		return
	}

	logger := log.New(os.Stderr, "gamed ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	store, err := server.OpenStore(cfg.Server.DBPath)
	if err != nil {
		logger.Fatalf("open %s: %v", cfg.Server.DBPath, err)
	}
	defer store.Close()

	srv := server.New(store, logger)
	logger.Printf("version %s listening on %s (db %s)", buildVersion, cfg.Server.Addr, cfg.Server.DBPath)
	if err := http.ListenAndServe(cfg.Server.Addr, srv.Routes()); err != nil {
		logger.Fatalf("serve: %v", err)
	}
}
