package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/EngoEngine/engo"
	"github.com/mattn/go-colorable"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ScottBrooks/deadreckon"
	"github.com/ScottBrooks/deadreckon/config"
	"github.com/ScottBrooks/deadreckon/transport"
)

var (
	serverURL   string
	configPath  string
	ownedIDs    []uint
	reportEvery float64
	fpsLimit    int
	logLevel    string
	syncTimeout time.Duration
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "deadreckon-client",
		Short:        "Observe a deadreckon server and predict its ships between snapshots",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runClient,
	}

	rootCmd.Flags().StringVar(&serverURL, "url", "ws://127.0.0.1:7777/ws", "server websocket URL")
	rootCmd.Flags().StringVar(&configPath, "config", "deadreckon.toml", "config file")
	rootCmd.Flags().UintSliceVar(&ownedIDs, "own", nil, "entity ids this client is authoritative for")
	rootCmd.Flags().Float64Var(&reportEvery, "report", 1, "seconds between state reports, 0 disables")
	rootCmd.Flags().IntVar(&fpsLimit, "fps", 60, "frame rate limit")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	rootCmd.Flags().DurationVar(&syncTimeout, "sync-timeout", 5*time.Second, "time to wait for the first frame")

	return rootCmd
}

func runClient(cmd *cobra.Command, _ []string) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	log.SetOutput(colorable.NewColorableStdout())
	log.SetLevel(level)

	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	c, err := transport.Dial(ctx, serverURL, log.WithField("component", "transport"))
	if err != nil {
		return err
	}
	defer c.Close()

	waitCtx, waitCancel := context.WithTimeout(ctx, syncTimeout)
	err = c.WaitSynced(waitCtx)
	waitCancel()
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", serverURL, err)
	}

	mailbox := &engo.MessageManager{}
	mailbox.Listen(deadreckon.ResyncMessage{}.Type(), func(msg engo.Message) {
		m, ok := msg.(deadreckon.ResyncMessage)
		if !ok {
			return
		}
		log.WithFields(log.Fields{
			"clock":  m.Clock,
			"reason": m.Reason,
			"error":  m.Error,
		}).Debug("clock resynced")
	})

	owned := map[uint64]bool{}
	for _, id := range ownedIDs {
		owned[uint64(id)] = true
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-c.Done():
			log.WithError(c.Err()).Warn("connection closed")
		}
		engo.Exit()
	}()

	cs := deadreckon.ClientScene{
		Source:         c,
		Authority:      c.Clock(),
		ClockConfig:    fileCfg.ResolveClock(),
		Replicator:     fileCfg.ResolveReplicator().Config(),
		Owned:          owned,
		ReportInterval: float32(reportEvery),
		Mailbox:        mailbox,
	}
	opts := engo.RunOptions{
		Title:        "deadreckon",
		HeadlessMode: true,
		FPSLimit:     fpsLimit,
	}
	engo.Run(opts, &cs)

	if dropped := c.Dropped(); dropped > 0 {
		log.WithField("frames", dropped).Warn("frames dropped while behind")
	}
	return nil
}
