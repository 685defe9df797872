// Package api defines the core data types shared by the walkthrough
// sequencer and its hosts
//
// This package contains step identifiers, accumulated step state, render
// directives, endpoint call descriptions, run events, and the HTTP messages
// exchanged with the walkthrough service
package api
