package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chat/internal/adapters/relayclient"
	"github.com/dkeye/Chat/internal/adapters/rtc"
	"github.com/dkeye/Chat/internal/client"
	"github.com/dkeye/Chat/internal/config"
	"github.com/dkeye/Chat/internal/logging"
	"github.com/dkeye/Chat/internal/negotiator"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logging.Setup("info", os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Setup(cfg.LogLevel, os.Stderr)
	logger := logging.Module("peer")

	url, err := relayclient.SignalURL(cfg.Peer.ServerURL, cfg.Peer.Username)
	if err != nil {
		log.Fatal().Err(err).Msg("bad relay url")
	}
	relay, err := relayclient.Dial(ctx, url, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("relay unreachable")
	}
	defer relay.Close()

	factory := rtc.NewFactory(rtc.ConfigFromURLs(cfg.Peer.ICEServers), logger)
	neg := negotiator.New(negotiator.Config{
		ChannelLabel:         cfg.Peer.ChannelLabel,
		HandshakeTimeout:     cfg.Peer.HandshakeTimeout,
		MaxPendingCandidates: cfg.Peer.MaxPendingCandidates,
	}, factory.New, relay, logger)
	defer neg.Close()

	cl := client.New(relay, neg, client.NewPTermConsole(os.Stdout), client.Options{Room: cfg.Peer.Room}, logger)

	go func() {
		if err := relay.Run(ctx, cl.Handlers(ctx)); err != nil {
			logger.Error().Err(err).Msg("relay connection lost")
		}
		cancel()
	}()

	if err := cl.Run(ctx, os.Stdin); err != nil {
		logger.Error().Err(err).Msg("input closed")
	}
	logger.Info().Msg("bye")
}
