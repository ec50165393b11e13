package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okian/vaep/internal/adapters/dataset"
	service "github.com/okian/vaep/internal/app"
	"github.com/okian/vaep/internal/domain/labels"
	"github.com/okian/vaep/internal/domain/model"
	"github.com/okian/vaep/internal/domain/sequence"
	"github.com/okian/vaep/pkg/logger"
)

var (
	batchActions         string
	batchProbabilities   string
	batchOut             string
	batchLabelsOut       string
	batchDB              string
	batchNrActions       int
	batchNrSeconds       float64
	batchPrecheckActions int
)

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Compute labels for every action of a SPADL actions CSV",
	Long: `Reads a SPADL actions CSV holding one or more games, computes the
scores, concedes, timed and goal_from_shot labels per action and writes
them as CSV.

Examples:
  vaep label --actions actions.csv --out labels.csv
  vaep label --actions actions.csv --nr-actions 5 --nr-seconds 10`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		games, err := loadGames(ctx, batchActions, "")
		if err != nil {
			return err
		}
		results, err := rateGames(ctx, cmd, games, "")
		if err != nil {
			return err
		}
		return writeOutput(batchOut, func(w io.Writer) error {
			return dataset.WriteResults(w, nil, games, results)
		})
	},
}

var valueCmd = &cobra.Command{
	Use:   "value",
	Short: "Compute action values from an actions CSV and its probability estimates",
	Long: `Reads a SPADL actions CSV and a probabilities CSV aligned with it row by
row, computes offensive, defensive and total values per action and writes
them as CSV. With --db the results are also stored in a SQLite file.

Examples:
  vaep value --actions actions.csv --probabilities probs.csv --out values.csv
  vaep value --actions actions.csv --probabilities probs.csv --db results.db`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		games, err := loadGames(ctx, batchActions, batchProbabilities)
		if err != nil {
			return err
		}
		results, err := rateGames(ctx, cmd, games, batchDB)
		if err != nil {
			return err
		}
		if batchLabelsOut != "" {
			if err := writeOutput(batchLabelsOut, func(w io.Writer) error {
				return dataset.WriteResults(w, nil, games, results)
			}); err != nil {
				return err
			}
		}
		return writeOutput(batchOut, func(w io.Writer) error {
			return dataset.WriteResults(nil, w, games, results)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{labelCmd, valueCmd} {
		c.Flags().StringVar(&batchActions, "actions", "", "path to the SPADL actions CSV (required)")
		c.Flags().StringVar(&batchOut, "out", "-", "output CSV path, - for stdout")
		c.Flags().IntVar(&batchNrActions, "nr-actions", labels.DefaultNrActions, "count horizon of the scores/concedes labels")
		c.Flags().Float64Var(&batchNrSeconds, "nr-seconds", labels.DefaultNrSeconds, "time bound of the timed labels")
		c.Flags().IntVar(&batchPrecheckActions, "precheck-actions", labels.DefaultPrecheckActions, "count pre-check of the timed labels")
		_ = c.MarkFlagRequired("actions")
		rootCmd.AddCommand(c)
	}
	valueCmd.Flags().StringVar(&batchProbabilities, "probabilities", "", "path to the probabilities CSV (required)")
	valueCmd.Flags().StringVar(&batchLabelsOut, "labels-out", "", "also write labels to this path")
	valueCmd.Flags().StringVar(&batchDB, "db", "", "store results in this SQLite file")
	_ = valueCmd.MarkFlagRequired("probabilities")
}

// loadGames reads the input files concurrently and splits them per game.
func loadGames(ctx context.Context, actionsPath, probsPath string) ([]model.Game, error) {
	var (
		actions []model.Action
		probs   []model.Probabilities
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		actions, err = readFile(actionsPath, dataset.ReadActions)
		return err
	})
	if probsPath != "" {
		g.Go(func() error {
			var err error
			probs, err = readFile(probsPath, dataset.ReadProbabilities)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	games, err := sequence.Partition(ctx, actions)
	if err != nil {
		return nil, eris.Wrap(err, "partition games")
	}
	if probsPath != "" {
		if games, err = sequence.Attach(games, probs); err != nil {
			return nil, eris.Wrap(err, "attach probabilities")
		}
	}
	logger.Get().Info(ctx, "loaded games",
		logger.Int("games", len(games)),
		logger.Int("actions", len(actions)),
		logger.Bool("probabilities", probsPath != ""))
	return games, nil
}

// horizonOptions applies the config, then any horizon flag set on cmd.
func horizonOptions(cmd *cobra.Command) []labels.Option {
	opts := cfg.LabelOptions()
	if cmd.Flags().Changed("nr-actions") {
		opts = append(opts, labels.WithNrActions(batchNrActions))
	}
	if cmd.Flags().Changed("nr-seconds") {
		opts = append(opts, labels.WithNrSeconds(batchNrSeconds))
	}
	if cmd.Flags().Changed("precheck-actions") {
		opts = append(opts, labels.WithPrecheckActions(batchPrecheckActions))
	}
	return opts
}

// rateGames rates games on a short-lived service so they run in parallel.
func rateGames(ctx context.Context, cmd *cobra.Command, games []model.Game, dsn string) ([]model.GameResult, error) {
	svc := service.New(
		service.WithLogger(logger.Named("service")),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithLabelOptions(horizonOptions(cmd)...),
		service.WithResultsDSN(dsn),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, eris.Wrap(err, "start service")
	}
	defer svc.Stop()

	results, err := svc.ProcessGames(ctx, games)
	if err != nil {
		return nil, eris.Wrap(err, "rate games")
	}
	return results, nil
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	rows, err := read(f)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	return rows, nil
}

// writeOutput writes to path, or to stdout when path is empty or "-".
func writeOutput(path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "write %s", path)
	}
	return eris.Wrapf(f.Close(), "close %s", path)
}
