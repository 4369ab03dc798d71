// Package util provides common utility functions and data structures
//
// This package includes generic set and path-index implementations plus
// state transition tables used throughout the workflow engine
package util
