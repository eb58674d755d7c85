package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/EngoEngine/engo"
	"github.com/mattn/go-colorable"
	log "github.com/sirupsen/logrus"

	"github.com/ScottBrooks/deadreckon"
	"github.com/ScottBrooks/deadreckon/config"
	"github.com/ScottBrooks/deadreckon/transport"
)

func main() {
	configPath := flag.String("config", "deadreckon.toml", "config file")
	listen := flag.String("listen", "", "listen address, overrides the config file")
	ships := flag.Int("ships", -1, "number of bot ships, overrides the config file")
	seed := flag.Int64("seed", 0, "bot seed, overrides the config file")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	log.SetOutput(colorable.NewColorableStdout())
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	fileCfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("loading config")
	}
	settings := fileCfg.ResolveServer()
	if *listen != "" {
		settings.Listen = *listen
	}
	if *ships >= 0 {
		settings.Ships = *ships
	}
	if *seed != 0 {
		settings.Seed = *seed
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	srv := transport.NewServer(log.WithField("component", "transport"))
	go func() {
		if err := srv.ListenAndServe(ctx, settings.Listen); err != nil {
			log.WithError(err).Error("transport stopped")
		}
		cancel()
	}()
	go func() {
		<-ctx.Done()
		engo.Exit()
	}()

	log.WithFields(log.Fields{
		"ships":     settings.Ships,
		"tick_rate": settings.TickRate,
		"send_rate": settings.SendRate,
	}).Info("starting simulation")

	opts := engo.RunOptions{
		Title:        "deadreckon",
		HeadlessMode: true,
		FPSLimit:     settings.TickRate,
	}
	ss := deadreckon.ServerScene{
		Out:      srv,
		Ships:    settings.Ships,
		Bounds:   settings.Bounds,
		SendRate: settings.SendRate,
		Seed:     settings.Seed,
	}
	engo.Run(opts, &ss)
}
