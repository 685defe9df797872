// Package host renders walkthrough directives against a live API. It
// resolves endpoint permalinks through the catalog, performs the calls,
// applies each step's verification, and reports what happened to an
// Observer
package host
