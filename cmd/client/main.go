package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/topogame/dice-dominion-sub000/internal/client"
	"github.com/topogame/dice-dominion-sub000/internal/dice"
	"github.com/topogame/dice-dominion-sub000/internal/game"
	"github.com/topogame/dice-dominion-sub000/internal/logger"
)

func main() {
	profile := flag.String("profile", "", "Profile name for separate config (e.g., bot1, bot2)")
	serverAddr := flag.String("server", "", "Server address (default: last used)")
	matchID := flag.String("match", "", "Match to join; empty creates a new one")
	players := flag.Int("players", 2, "Seats when creating a match")
	mapType := flag.String("map", string(game.MapFlat), "Map type when creating a match")
	turnTimer := flag.Int("turn-timer", 0, "Turn timer in seconds when creating a match (0: server default)")
	seed := flag.Uint64("seed", 0, "Move seed (0: random)")
	level := flag.String("log-level", "info", "Log level")
	flag.Parse()

	logger.Init(*level, true)
	client.SetProfile(*profile)

	cfg, err := client.LoadConfig()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
	}
	if *serverAddr != "" {
		cfg.LastServer = *serverAddr
	}

	s := *seed
	if s == 0 {
		if s, err = dice.NewSeed(); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed moves")
		}
	}

	net := client.NewNetworkClient()
	bot := client.NewBot(net, dice.NewSeeded(s), cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := net.Connect(ctx, cfg.LastServer); err != nil {
		log.Fatal().Err(err).Str("server", cfg.LastServer).Msg("Failed to connect")
	}
	defer net.Disconnect()

	if err := cfg.Save(); err != nil {
		log.Warn().Err(err).Msg("Failed to save config")
	}

	if *matchID != "" {
		err = bot.Join(*matchID)
	} else {
		mt, perr := game.ParseMapType(*mapType)
		if perr != nil {
			log.Fatal().Err(perr).Msg("Invalid map")
		}
		err = bot.Create(*players, mt, *turnTimer)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to send request")
	}

	select {
	case winner := <-bot.Done():
		_, me := bot.Seat()
		log.Info().Str("winner", winner).Bool("won", winner == me).Msg("Match over")
	case err := <-bot.Failed():
		log.Error().Err(err).Msg("Bot stopped")
		os.Exit(1)
	case <-ctx.Done():
		log.Info().Msg("Interrupted")
	}
}
