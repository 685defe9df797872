// Package workflow implements the walkthrough step sequencer
//
// A Definition is an ordered set of named steps. Each step callback reads
// the accumulated StepState of the steps before it and returns a Directive
// describing what the host should render. The Runner executes steps strictly
// in order, hands each directive to the Host, and records a step only once
// its response has been verified
package workflow
