// Package cli implements the rftune command line: grid search and recursive
// feature elimination over a random forest trained on a CSV file.
package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/rftune/internal/dataset"
	"github.com/YuminosukeSato/rftune/pkg/log"
	"github.com/YuminosukeSato/rftune/sklearn/ensemble"
	"github.com/YuminosukeSato/rftune/tuning"
)

type rootOptions struct {
	configPath  string
	logLevel    string
	logFormat   string
	sep         string
	header      bool
	labelColumn int
	nEstimators int
	randomState int64
	forestJobs  int
}

// NewRootCmd builds the rftune command tree.
func NewRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "rftune",
		Short:         "Tune random forest classifiers from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(o.logLevel, o.logFormat, cmd.ErrOrStderr())
		},
	}
	addRootFlags(cmd.PersistentFlags(), o)
	cmd.AddCommand(newOptimizeCmd(o), newRFECmd(o))
	return cmd
}

// Execute runs the command tree with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func addRootFlags(fs *pflag.FlagSet, o *rootOptions) {
	fs.StringVar(&o.configPath, "config", "", "config file (yaml, toml or json)")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	fs.StringVar(&o.logFormat, "log-format", "console", "log format: console or json")
	fs.StringVar(&o.sep, "sep", ",", "CSV field separator")
	fs.BoolVar(&o.header, "header", false, "CSV file has a header row")
	fs.IntVar(&o.labelColumn, "label-column", -1, "index of the label column, negative counts from the end")
	fs.IntVar(&o.nEstimators, "n-estimators", 100, "number of trees of the forest")
	fs.Int64Var(&o.randomState, "random-state", 0, "seed of the forest (random when unset)")
	fs.IntVar(&o.forestJobs, "forest-jobs", 1, "number of trees built concurrently, -1 for all CPUs")
}

func setupLogging(level, format string, w io.Writer) error {
	switch format {
	case "json":
		return log.SetupLogger(level, w)
	default:
		lvl, err := log.ToLogLevel(level)
		if err != nil {
			return err
		}
		log.SetLogger(log.NewConsoleLogger(w, log.Level(lvl)))
		return nil
	}
}

func (o *rootOptions) loadData(path string) (*dataset.Dataset, error) {
	opts := dataset.DefaultCSVOptions()
	if o.sep != "" {
		opts.Sep = []rune(o.sep)[0]
	}
	opts.Header = o.header
	opts.LabelColumn = o.labelColumn
	ds, err := dataset.LoadCSVFile(path, opts)
	if err != nil {
		return nil, err
	}
	n, p := ds.Dims()
	log.GetLoggerWithName("cli").Info("dataset loaded",
		"path", path,
		log.SamplesKey, n,
		log.FeaturesKey, p,
	)
	return ds, nil
}

func (o *rootOptions) newEstimator(cmd *cobra.Command) *ensemble.RandomForestClassifierWithCoef {
	opts := []ensemble.ForestOption{
		ensemble.WithNEstimators(o.nEstimators),
		ensemble.WithNJobs(o.forestJobs),
	}
	if cmd.Flags().Changed("random-state") {
		opts = append(opts, ensemble.WithRandomState(o.randomState))
	}
	return ensemble.NewRandomForestClassifierWithCoef(opts...)
}

// loadViper reads the config file, if any, and binds the command's flags to
// config keys under section.
func (o *rootOptions) loadViper(cmd *cobra.Command, section string, keys map[string]string) (*viper.Viper, error) {
	v := tuning.NewViper()
	if o.configPath != "" {
		v.SetConfigFile(o.configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	for flag, key := range keys {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(section+"."+key, f); err != nil {
				return nil, err
			}
		}
	}
	return v, nil
}
