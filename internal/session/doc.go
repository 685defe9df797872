// Package session holds in-flight walkthrough runs between requests. A run
// is captured as its recorded StepState and position, so any server
// instance sharing a store can advance it
package session
