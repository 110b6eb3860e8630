package cli

import (
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/rftune/tuning"
)

func newOptimizeCmd(o *rootOptions) *cobra.Command {
	var (
		gridPath   string
		noProgress bool
	)
	cmd := &cobra.Command{
		Use:   "optimize <train.csv>",
		Short: "Grid search the forest hyperparameters with k-fold cross-validation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := o.loadViper(cmd, "search", map[string]string{
				"folds":   "folds",
				"scoring": "scoring",
				"n-jobs":  "n_jobs",
				"verbose": "verbose",
			})
			if err != nil {
				return err
			}
			cfg, err := tuning.DecodeConfig(v)
			if err != nil {
				return err
			}
			if gridPath != "" {
				if cfg.Search.ParamGrid, err = tuning.LoadParamGridFile(gridPath); err != nil {
					return err
				}
			}
			ds, err := o.loadData(args[0])
			if err != nil {
				return err
			}

			opts := append(cfg.Search.Options(), tuning.WithWriter(cmd.OutOrStdout()))
			if !noProgress {
				bar := progressbar.NewOptions(cfg.Search.ParamGrid.NumCombinations(),
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionSetDescription("grid search"),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
				defer bar.Finish()
				opts = append(opts, tuning.WithProgress(func(done, _ int) { _ = bar.Set(done) }))
			}
			_, err = tuning.Optimize(cmd.Context(), o.newEstimator(cmd), ds.X, ds.Y, opts...)
			return err
		},
	}
	fs := cmd.Flags()
	fs.Int("folds", tuning.DefaultFolds, "number of cross-validation folds")
	fs.String("scoring", "accuracy", "scoring: accuracy, roc_auc or neg_log_loss")
	fs.Int("n-jobs", 1, "number of folds fitted concurrently, -1 for all CPUs")
	fs.Int("verbose", 0, "verbosity of the search logs")
	fs.StringVar(&gridPath, "grid", "", "YAML file with the parameter grid")
	fs.BoolVar(&noProgress, "no-progress", false, "hide the progress bar")
	return cmd
}
