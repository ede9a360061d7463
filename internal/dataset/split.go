// Package dataset partitions labeled feature rows for training, validation
// and testing. Every random choice is driven by an explicit seed so a run can
// be reproduced.
package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/crimson-sun/helpful/internal/model"
)

// Split shuffles p with seed and holds out ceil(testFrac*n) rows for testing.
func Split(p model.Partition, testFrac float64, seed int64) (train, test model.Partition, err error) {
	if testFrac <= 0 || testFrac >= 1 {
		return train, test, fmt.Errorf("dataset: test fraction %v outside (0,1)", testFrac)
	}
	n := p.Len()
	nTest := int(math.Ceil(testFrac * float64(n)))
	if nTest == 0 || nTest >= n {
		return train, test, fmt.Errorf("dataset: cannot hold out %d of %d rows: %w", nTest, n, model.ErrInsufficientSamples)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return p.Subset(perm[nTest:]), p.Subset(perm[:nTest]), nil
}

// SplitThree holds out testFrac of p for testing, then valFrac of the
// remainder for validation.
func SplitThree(p model.Partition, testFrac, valFrac float64, seed int64) (train, val, test model.Partition, err error) {
	rest, test, err := Split(p, testFrac, seed)
	if err != nil {
		return train, val, test, err
	}
	train, val, err = Split(rest, valFrac, seed)
	if err != nil {
		return train, val, test, fmt.Errorf("dataset: validation split: %w", err)
	}
	return train, val, test, nil
}

// Fold is one cross-validation round: row indexes to fit on and to score on.
type Fold struct {
	Train []int
	Test  []int
}

// StratifiedKFold deals the rows of each class round-robin into k folds so
// that every fold keeps roughly the class ratio of y. With shuffle set the
// rows of each class are permuted with seed first.
func StratifiedKFold(y []int, k int, shuffle bool, seed int64) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("dataset: need at least 2 folds, got %d", k)
	}
	if k > len(y) {
		return nil, fmt.Errorf("dataset: %d folds for %d rows: %w", k, len(y), model.ErrInsufficientSamples)
	}

	byClass := make(map[int][]int)
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	var rng *rand.Rand
	if shuffle {
		rng = rand.New(rand.NewSource(seed))
	}
	assign := make([]int, len(y))
	next := 0
	for _, c := range classes {
		idx := byClass[c]
		if rng != nil {
			rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		}
		for _, i := range idx {
			assign[i] = next % k
			next++
		}
	}

	folds := make([]Fold, k)
	for i, f := range assign {
		for j := range folds {
			if j == f {
				folds[j].Test = append(folds[j].Test, i)
			} else {
				folds[j].Train = append(folds[j].Train, i)
			}
		}
	}
	return folds, nil
}
