// Package walkthrough holds the identity of the walkthrough service
package walkthrough

const (
	Name    = "walkthrough"
	Version = "1.0.0"
)
