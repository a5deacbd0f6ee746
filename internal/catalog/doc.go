// Package catalog holds the registry of candidate curve models used by the
// fitter and the model selector. Each model is a closed Kind with a name, an
// evaluation function, an initial guess and per-parameter box constraints.
// A Catalog is append-only and safe for concurrent reads once built.
package catalog
