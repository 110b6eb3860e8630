// Package tuning drives hyperparameter search and recursive feature
// elimination for any estimator in this module and reports the outcome.
//
//	clf := ensemble.NewRandomForestClassifierWithCoef(ensemble.WithRandomState(0))
//	res, err := tuning.Optimize(ctx, clf, X, y)
//	...
//	sel, err := tuning.RecursiveFeatureElimination(ctx, clf, X, y)
package tuning

import (
	"io"
	"os"

	"github.com/YuminosukeSato/rftune/core/model"
	"github.com/YuminosukeSato/rftune/metrics"
	"github.com/YuminosukeSato/rftune/pkg/log"
)

// DefaultFolds is the number of cross-validation folds used by both wrappers.
const DefaultFolds = 5

// DefaultParamGrid returns the grid searched by Optimize when none is given.
func DefaultParamGrid() model.ParamGrid {
	return model.ParamGrid{
		"n_estimators":      {1000},
		"max_features":      {"auto"},
		"max_depth":         {nil},
		"min_samples_split": {5},
		"min_samples_leaf":  {1},
		"n_jobs":            {-1},
	}
}

// SearchConfig configures Optimize.
type SearchConfig struct {
	Folds     int             `mapstructure:"folds" yaml:"folds"`
	Scoring   string          `mapstructure:"scoring" yaml:"scoring"`
	NJobs     int             `mapstructure:"n_jobs" yaml:"n_jobs"`
	Verbose   int             `mapstructure:"verbose" yaml:"verbose"`
	ParamGrid model.ParamGrid `mapstructure:"param_grid" yaml:"param_grid"`
}

// EliminationConfig configures RecursiveFeatureElimination.
type EliminationConfig struct {
	Folds       int     `mapstructure:"folds" yaml:"folds"`
	Scoring     string  `mapstructure:"scoring" yaml:"scoring"`
	Step        float64 `mapstructure:"step" yaml:"step"`
	MinFeatures int     `mapstructure:"min_features_to_select" yaml:"min_features_to_select"`
	NJobs       int     `mapstructure:"n_jobs" yaml:"n_jobs"`
	Verbose     int     `mapstructure:"verbose" yaml:"verbose"`
}

// Config groups the settings of both wrappers, as loaded from a config file.
type Config struct {
	Search      SearchConfig      `mapstructure:"search" yaml:"search"`
	Elimination EliminationConfig `mapstructure:"elimination" yaml:"elimination"`
}

// DefaultConfig returns the defaults of Optimize and RecursiveFeatureElimination.
func DefaultConfig() Config {
	return Config{
		Search: SearchConfig{
			Folds:     DefaultFolds,
			Scoring:   metrics.ScoringAccuracy,
			NJobs:     1,
			ParamGrid: DefaultParamGrid(),
		},
		Elimination: EliminationConfig{
			Folds:       DefaultFolds,
			Scoring:     metrics.ScoringROCAUC,
			Step:        1,
			MinFeatures: 1,
			NJobs:       1,
			Verbose:     1,
		},
	}
}

// Options converts the config into Optimize options.
func (c SearchConfig) Options() []Option {
	opts := []Option{
		WithFolds(c.Folds),
		WithScoring(c.Scoring),
		WithNJobs(c.NJobs),
		WithVerbose(c.Verbose),
	}
	if len(c.ParamGrid) > 0 {
		opts = append(opts, WithParamGrid(c.ParamGrid))
	}
	return opts
}

// Options converts the config into RecursiveFeatureElimination options.
func (c EliminationConfig) Options() []Option {
	return []Option{
		WithFolds(c.Folds),
		WithScoring(c.Scoring),
		WithStep(c.Step),
		WithMinFeatures(c.MinFeatures),
		WithNJobs(c.NJobs),
		WithVerbose(c.Verbose),
	}
}

type settings struct {
	folds       int
	scoring     string
	paramGrid   model.ParamGrid
	step        float64
	minFeatures int
	nJobs       int
	verbose     int
	writer      io.Writer
	logger      log.Logger
	progress    func(done, total int)
}

// Option overrides a default of Optimize or RecursiveFeatureElimination.
// Options that do not apply to a wrapper are ignored by it.
type Option func(*settings)

// WithFolds sets the number of cross-validation folds.
func WithFolds(folds int) Option {
	return func(s *settings) { s.folds = folds }
}

// WithScoring sets the scorer name.
func WithScoring(scoring string) Option {
	return func(s *settings) { s.scoring = scoring }
}

// WithParamGrid replaces the grid searched by Optimize.
func WithParamGrid(grid model.ParamGrid) Option {
	return func(s *settings) { s.paramGrid = grid }
}

// WithStep sets the number (or fraction, when < 1) of features removed per iteration.
func WithStep(step float64) Option {
	return func(s *settings) { s.step = step }
}

// WithMinFeatures sets the smallest feature subset evaluated.
func WithMinFeatures(n int) Option {
	return func(s *settings) { s.minFeatures = n }
}

// WithNJobs sets how many folds are processed concurrently.
func WithNJobs(nJobs int) Option {
	return func(s *settings) { s.nJobs = nJobs }
}

// WithVerbose sets the verbosity of the progress logs.
func WithVerbose(verbose int) Option {
	return func(s *settings) { s.verbose = verbose }
}

// WithWriter sets where the report is printed. Default os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(s *settings) { s.writer = w }
}

// WithLogger sets the logger for verbose progress.
func WithLogger(logger log.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithProgress registers a callback called after each grid combination.
func WithProgress(fn func(done, total int)) Option {
	return func(s *settings) { s.progress = fn }
}

func newSettings(defaults settings, opts []Option) settings {
	s := defaults
	for _, opt := range opts {
		opt(&s)
	}
	if s.writer == nil {
		s.writer = os.Stdout
	}
	if s.logger == nil {
		s.logger = log.GetLoggerWithName("tuning")
	}
	return s
}

func searchDefaults() settings {
	c := DefaultConfig().Search
	return settings{
		folds:     c.Folds,
		scoring:   c.Scoring,
		paramGrid: c.ParamGrid,
		nJobs:     c.NJobs,
		verbose:   c.Verbose,
	}
}

func eliminationDefaults() settings {
	c := DefaultConfig().Elimination
	return settings{
		folds:       c.Folds,
		scoring:     c.Scoring,
		step:        c.Step,
		minFeatures: c.MinFeatures,
		nJobs:       c.NJobs,
		verbose:     c.Verbose,
	}
}
