package model

import "errors"

// Error taxonomy shared by every pipeline stage. Stages wrap these with %w so
// callers can test with errors.Is.
var (
	// ErrIO reports an input resource that cannot be opened or read.
	ErrIO = errors.New("io error")
	// ErrParse reports a malformed JSON line.
	ErrParse = errors.New("parse error")
	// ErrFormat reports a vote field that is not a non-negative integer.
	ErrFormat = errors.New("format error")
	// ErrEmptyCorpus reports an attempt to vectorize zero documents.
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrComputation reports a metric that is undefined for its input.
	ErrComputation = errors.New("computation error")
	// ErrInsufficientSamples reports a sample request larger than its population.
	ErrInsufficientSamples = errors.New("insufficient samples")
)
