package dataset

import (
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/priceml/pkg/errors"
)

// TrainTestSplit partitions a feature set into a training and a held-out
// part. The permutation depends only on the row count, the fraction and the
// seed, so two feature sets derived from the same cleaned table land the
// same rows in the same partitions and stay comparable across experiments.
func TrainTestSplit(fs *FeatureSet, testFraction float64, seed int) (train, test *FeatureSet, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, errors.NewValidationError("testFraction", "must be in (0, 1)", testFraction)
	}

	n := fs.NRows()
	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest == 0 || nTest == n {
		return nil, nil, errors.NewValueError("dataset.TrainTestSplit",
			"split would leave an empty partition")
	}

	indices := permutation(n, seed)
	test = fs.Subset(indices[:nTest])
	train = fs.Subset(indices[nTest:])
	return train, test, nil
}

// SplitIndices returns the train and test row indices for a given row count,
// fraction and seed, without materializing matrices. Useful for verifying
// membership determinism.
func SplitIndices(n int, testFraction float64, seed int) (trainIdx, testIdx []int, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, errors.NewValidationError("testFraction", "must be in (0, 1)", testFraction)
	}
	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest == 0 || nTest == n {
		return nil, nil, errors.NewValueError("dataset.SplitIndices",
			"split would leave an empty partition")
	}
	indices := permutation(n, seed)
	return indices[nTest:], indices[:nTest], nil
}

// permutation shuffles [0, n) with a PCG stream keyed by the seed.
func permutation(n, seed int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	rng.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	return indices
}
