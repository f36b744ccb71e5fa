package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ftpsession/config"
	"ftpsession/core"
	"ftpsession/logger"
)

func main() {
	configPath := flag.String("config", "config.toml", "Path to config file")
	historyPath := flag.String("history", "history.json", "Path to history file")
	once := flag.Bool("once", false, "Run every job once and exit")
	verify := flag.Bool("verify", false, "Run the connection smoke check and exit")
	list := flag.String("list", "", "Print the listing of a remote directory and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log.Path, cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log: %v\n", err)
		os.Exit(1)
	}
	log := logger.Component("main")

	switch {
	case *verify:
		if !runVerify(os.Stdout, cfg) {
			os.Exit(1)
		}
		return
	case *list != "":
		if err := runList(os.Stdout, cfg, *list); err != nil {
			log.Error().Err(err).Str("dir", *list).Msg("listing failed")
			os.Exit(1)
		}
		return
	}

	hm := core.NewHistoryManager(*historyPath)
	if err := hm.Load(); err != nil {
		log.Warn().Err(err).Msg("failed to load history")
	}

	tm := core.NewTransferManager(hm, cfg)
	runner := core.NewRunner(cfg, tm)

	if *once {
		failed := runner.RunAll()
		if err := hm.Save(); err != nil {
			log.Warn().Err(err).Msg("failed to save history")
		}
		if failed > 0 {
			log.Error().Int("failed", failed).Int("jobs", len(cfg.Jobs)).Msg("some jobs failed")
			os.Exit(1)
		}
		return
	}

	runner.Start()
	log.Info().Int("jobs", len(cfg.Jobs)).Msg("ftpsession started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down")
	runner.Stop()
	if err := hm.Save(); err != nil {
		log.Warn().Err(err).Msg("failed to save history")
	}
}
