package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/rftune/pkg/log"
	"github.com/YuminosukeSato/rftune/tuning"
)

func newRFECmd(o *rootOptions) *cobra.Command {
	var plotPath string
	cmd := &cobra.Command{
		Use:   "rfe <train.csv>",
		Short: "Recursive feature elimination with cross-validation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := o.loadViper(cmd, "elimination", map[string]string{
				"folds":        "folds",
				"scoring":      "scoring",
				"step":         "step",
				"min-features": "min_features_to_select",
				"n-jobs":       "n_jobs",
				"verbose":      "verbose",
			})
			if err != nil {
				return err
			}
			cfg, err := tuning.DecodeConfig(v)
			if err != nil {
				return err
			}
			ds, err := o.loadData(args[0])
			if err != nil {
				return err
			}

			opts := append(cfg.Elimination.Options(), tuning.WithWriter(cmd.OutOrStdout()))
			res, err := tuning.RecursiveFeatureElimination(cmd.Context(), o.newEstimator(cmd), ds.X, ds.Y, opts...)
			if err != nil {
				return err
			}

			selected := make([]string, 0, res.NFeatures)
			for j, ok := range res.Support {
				if ok {
					selected = append(selected, ds.FeatureNames[j])
				}
			}
			log.GetLoggerWithName("cli").Info("selected features", "features", strings.Join(selected, ","))

			if plotPath == "" {
				return nil
			}
			f, err := os.Create(plotPath)
			if err != nil {
				return err
			}
			format := strings.TrimPrefix(filepath.Ext(plotPath), ".")
			if err := tuning.PlotGridScores(f, res, format); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	fs := cmd.Flags()
	fs.Int("folds", tuning.DefaultFolds, "number of cross-validation folds")
	fs.String("scoring", "roc_auc", "scoring: accuracy, roc_auc or neg_log_loss")
	fs.Float64("step", 1, "features removed per iteration, a fraction when below 1")
	fs.Int("min-features", 1, "smallest feature subset evaluated")
	fs.Int("n-jobs", 1, "number of folds processed concurrently, -1 for all CPUs")
	fs.Int("verbose", 1, "verbosity of the elimination logs")
	fs.StringVar(&plotPath, "plot", "", "write the score per feature count chart to this file (png, svg, pdf)")
	return cmd
}
