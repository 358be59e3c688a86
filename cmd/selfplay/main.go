// Command selfplay runs bot-vs-bot matches offline and reports the winners.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/topogame/dice-dominion-sub000/internal/dice"
	"github.com/topogame/dice-dominion-sub000/internal/game"
	"github.com/topogame/dice-dominion-sub000/internal/logger"
	"github.com/topogame/dice-dominion-sub000/internal/match"
	"github.com/topogame/dice-dominion-sub000/pkg/maps"
)

func main() {
	seed := flag.Uint64("seed", 1, "Seed of the first game; game i uses seed+i")
	players := flag.Int("players", 2, "Players per match (2-4)")
	mapName := flag.String("map", string(game.MapFlat), "Map type: flat, river, mountain or bridge")
	maxSteps := flag.Int("max-steps", 5000, "Intent limit per game")
	games := flag.Int("games", 1, "Number of games")
	level := flag.String("log-level", "info", "Log level")
	printBoard := flag.Bool("print", false, "Print the final board of each game")
	flag.Parse()

	logger.Init(*level, false)

	mapType, err := game.ParseMapType(*mapName)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid map")
	}

	wins := make(map[string]int)
	unfinished := 0
	for i := 0; i < *games; i++ {
		s := *seed + uint64(i)
		m, steps, err := play(s, *players, mapType, *maxSteps)
		if m != nil && *printBoard {
			fmt.Fprintln(os.Stdout, maps.Debug(m.State()))
		}
		switch {
		case errors.Is(err, match.ErrStepLimit):
			unfinished++
			log.Info().Uint64("seed", s).Int("steps", steps).Msg("Step limit reached")
		case err != nil:
			log.Fatal().Err(err).Uint64("seed", s).Int("steps", steps).Msg("Game failed")
		default:
			winner := m.State().Winner
			wins[winner]++
			log.Info().Uint64("seed", s).Int("steps", steps).Str("winner", winner).Msg("Game finished")
		}
	}

	for _, id := range []string{"player1", "player2", "player3", "player4"} {
		if n, ok := wins[id]; ok {
			fmt.Fprintf(os.Stdout, "%s\t%d\n", id, n)
		}
	}
	fmt.Fprintf(os.Stdout, "unfinished\t%d\n", unfinished)
}

func play(seed uint64, players int, mapType game.MapType, maxSteps int) (*match.Match, int, error) {
	state, err := game.CreateInitialGameState(players, mapType, game.WithGameID(fmt.Sprintf("selfplay-%d", seed)))
	if err != nil {
		return nil, 0, err
	}
	m := match.New(state, dice.NewSeeded(seed), logger.Get())
	steps, err := match.AutoPlay(m, dice.NewSeeded(seed^0x9e3779b97f4a7c15), maxSteps)
	return m, steps, err
}
