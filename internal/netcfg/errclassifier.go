// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: github.com/bassosimone/nop errclassifier.go

package netcfg

// ErrClassifier classifies errors into categorical strings for structured
// logging (the errClass field on every connectDone/readDone/writeDone span).
type ErrClassifier interface {
	Classify(err error) string
}

// ErrClassifierFunc adapts a function to [ErrClassifier]:
//
//	cfg.ErrClassifier = ErrClassifierFunc(errclass.New)
type ErrClassifierFunc func(error) string

var _ ErrClassifier = ErrClassifierFunc(nil)

// Classify implements [ErrClassifier].
func (f ErrClassifierFunc) Classify(err error) string {
	return f(err)
}

// DefaultErrClassifier is a no-op classifier returning an empty string.
var DefaultErrClassifier = ErrClassifierFunc(func(error) string { return "" })
