// Package ir provides the value types shared by cuts, statements and the
// executor boundary.
//
// A level key on a hierarchy path is an IRValue: a string, an integer, a
// boolean or null. Floats are deliberately absent so that point and range
// cuts compare exactly and statement fingerprints stay deterministic.
//
// This package imports nothing internal. Every other internal package may
// import it.
package ir
