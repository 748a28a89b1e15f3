package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gurshaan17/2d-metaverse/backend/hub"
	websocketServer "github.com/gurshaan17/2d-metaverse/backend/server/websocket"
	sw "github.com/gurshaan17/2d-metaverse/backend/switch"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	fs := pflag.NewFlagSet("main", pflag.ContinueOnError)

	var (
		listenAddr   = fs.StringP("listen-addr", "a", ":8080", "websocket hub listen address")
		logLevel     = fs.StringP("log-level", "l", "debug", "log level")
		spawnRange   = fs.Float64P("spawn-range", "s", 1000, "upper bound for random spawn coordinates")
		pingInterval = fs.DurationP("ping-interval", "p", 5*time.Second, "websocket ping interval")
		pongWait     = fs.DurationP("pong-wait", "w", 7*time.Second, "how long a silent connection stays alive")
	)
	if err := fs.Parse(os.Args[1:]); err != nil {
		logger.Fatal().Err(err).Msg("failed to parse command line arguments")
	}

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse loglevel")
	}
	logger = logger.Level(lvl)

	gateway := hub.New(hub.Config{
		Logger:     &logger,
		Switch:     sw.NewSwitch(&logger),
		SpawnRange: *spawnRange,
	})
	wsSrv := websocketServer.NewServer(websocketServer.Config{
		Logger:       &logger,
		Gateway:      gateway,
		ListenAddr:   *listenAddr,
		PingInterval: *pingInterval,
		PongWait:     *pongWait,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		wg   = &sync.WaitGroup{}
		errc = make(chan error, 1)
	)
	wg.Add(1)
	go wsSrv.Run(ctx, wg, errc)

	select {
	case err = <-errc:
		logger.Error().Err(err).Msg("unexpected server error, shutting down")
	case <-ctx.Done():
		logger.Warn().Msg("interrupted")
	}
	cancel()
	wg.Wait()
}
