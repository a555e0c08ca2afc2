// Package model describes the logical star schema a Browser plans against:
// cubes, their measures and details, dimensions, hierarchies, levels and
// attributes, and the declared joins between physical tables.
//
// A Model is built once (usually by package compiler from a CUE or JSON
// file) and is read-only afterwards. Hierarchies of one dimension share
// *Level pointers, so a level's key and label attributes are defined in
// exactly one place no matter how many hierarchies pass through it.
package model
