// Package rftune provides random forest tuning helpers for Go: a random
// forest classifier that exposes its feature importances as coefficients,
// exhaustive grid search with k-fold cross-validation, and recursive feature
// elimination with cross-validation.
//
// rftune keeps a scikit-learn-like API on top of gonum matrices, so that
// anyone who has used GridSearchCV or RFECV in Python finds the same
// building blocks.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//
//	    "github.com/YuminosukeSato/rftune/sklearn/ensemble"
//	    "github.com/YuminosukeSato/rftune/tuning"
//	)
//
//	func main() {
//	    X, y := loadData() // *mat.Dense, labels in a single column
//
//	    clf := ensemble.NewRandomForestClassifierWithCoef(ensemble.WithRandomState(42))
//	    if _, err := tuning.Optimize(context.Background(), clf, X, y); err != nil {
//	        log.Fatal(err)
//	    }
//	    if _, err := tuning.RecursiveFeatureElimination(context.Background(), clf, X, y); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Packages
//
//   - tuning: Optimize and RecursiveFeatureElimination, reports, config and plots
//   - sklearn/ensemble: RandomForestClassifier, RandomForestClassifierWithCoef, CoefAdapter
//   - sklearn/tree: DecisionTreeClassifier (CART)
//   - sklearn/linear_model: LogisticRegression
//   - sklearn/model_selection: KFold, StratifiedKFold, CrossValScore, GridSearchCV
//   - sklearn/feature_selection: RFE, RFECV
//   - metrics: AUC, accuracy, log loss and named scorers
//   - core/model: estimator interfaces, parameter grids, StateManager
//   - core/parallel: worker fan-out helpers
//   - pkg/errors, pkg/log: typed errors, warnings and structured logging
//
// The rftune command (cmd/rftune) runs both wrappers on a CSV file.
package rftune
