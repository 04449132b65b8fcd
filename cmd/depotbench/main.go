// Profiling:
// go build ./cmd/depotbench
// ./depotbench iterate --profile cpu
// go tool pprof -http=":8000" ./depotbench cpu.pprof

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/TheBitDrifter/depot"
	"github.com/pkg/profile"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type position struct {
	X, Y float64
}

type velocity struct {
	X, Y float64
}

type tag struct{}

type options struct {
	entities   int
	iterations int
	profile    string
	sparse     bool
	verbose    bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "depotbench",
		Short:         "Exercise a depot world and report timings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()
	flags.IntVar(&opts.entities, "entities", 10000, "number of entities to spawn")
	flags.IntVar(&opts.iterations, "iterations", 1000, "number of passes")
	flags.StringVar(&opts.profile, "profile", "", "write a profile: cpu or mem")
	flags.BoolVar(&opts.sparse, "sparse", false, "store the tag component in a sparse set")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log world events")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "iterate",
			Short: "Iterate position and velocity",
			RunE: func(*cobra.Command, []string) error {
				return run(opts, iterate)
			},
		},
		&cobra.Command{
			Use:   "churn",
			Short: "Add and remove a component on every entity",
			RunE: func(*cobra.Command, []string) error {
				return run(opts, churn)
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Print the storage layout as JSON",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(opts, func(w *depot.World, _ *options) error {
					raw, err := w.Stats().JSON()
					if err != nil {
						return eris.Wrap(err, "failed to encode stats")
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(raw))
					return nil
				})
			},
		},
	)
	return cmd
}

func run(opts *options, fn func(*depot.World, *options) error) error {
	if opts.entities <= 0 || opts.iterations <= 0 {
		return eris.New("entities and iterations must be positive")
	}
	cfg, err := depot.LoadConfig()
	if err != nil {
		return err
	}
	if opts.verbose {
		cfg.LogLevel = zerolog.DebugLevel.String()
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	switch opts.profile {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return eris.Errorf("unknown profile mode %q", opts.profile)
	}

	w := depot.Factory.NewWorld(cfg, depot.WithLogger(log))
	if opts.sparse {
		if _, err := depot.FactoryNewSparseComponent[tag](w); err != nil {
			return err
		}
	}
	populate(w, opts.entities)

	start := time.Now()
	if err := fn(w, opts); err != nil {
		return err
	}
	log.Info().
		Int("entities", w.Len()).
		Int("iterations", opts.iterations).
		Int("archetypes", w.Archetypes().Len()).
		Dur("elapsed", time.Since(start)).
		Msg("done")
	return nil
}

func populate(w *depot.World, n int) {
	moving := n / 10
	w.SpawnBatch(moving, position{}, velocity{X: 1, Y: 1})
	w.SpawnBatch(n-moving-moving/2, position{})
	w.SpawnBatch(moving/2, position{}, velocity{}, tag{})
}

func iterate(w *depot.World, opts *options) error {
	q := depot.NewQuery2[position, velocity](w, depot.Modes(depot.Write))
	for i := 0; i < opts.iterations; i++ {
		q.ForEachMut(w, func(_ depot.Entity, p *position, v *velocity) {
			p.X += v.X
			p.Y += v.Y
		})
		w.ClearTrackers()
	}
	return nil
}

func churn(w *depot.World, opts *options) error {
	still := depot.NewQuery1[position](w, depot.Without[velocity]())
	cmds := depot.NewCommands(w)
	vel := depot.ComponentIDOf[velocity](w)
	for i := 0; i < opts.iterations; i++ {
		var moved []depot.Entity
		still.ForEach(w, func(e depot.Entity, _ *position) {
			cmds.Insert(e, velocity{X: 1})
			moved = append(moved, e)
		})
		if err := cmds.Apply(w); err != nil {
			return err
		}
		for _, e := range moved {
			cmds.Remove(e, vel)
		}
		if err := cmds.Apply(w); err != nil {
			return err
		}
	}
	return nil
}
