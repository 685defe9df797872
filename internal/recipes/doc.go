// Package recipes keeps the catalog of walkthroughs a host can run
package recipes
