// Package priceml is a small machine learning toolkit for tabular price
// regression, built around a scikit-learn-like API.
//
// It covers the full path from a raw CSV with sentinel-coded missing values
// to a cross-validated model comparison:
//
//   - dataset: CSV loading, missing-value accounting, one-hot encoding and
//     seeded train/test splitting
//   - preprocessing: median/mean imputation and standard scaling
//   - linear, ensemble: ridge regression and gradient boosted trees
//   - pipeline: impute/scale/model composition with leak-free cloning
//   - modelselection: k-fold cross-validation, grid and randomized search
//   - experiment: the three-way model comparison and held-out evaluation
//
// # Quick Start
//
//	result, err := experiment.Run(experiment.DefaultConfig("automobile.csv"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Print(result.Comparison.Table())
//	fmt.Printf("held-out MAE: %.2f\n", result.HeldOutMAE)
//
// Every randomized step (splitting, fold shuffling, feature subsampling,
// randomized search) is driven by explicit seeds, so a run is reproducible
// end to end.
package priceml
