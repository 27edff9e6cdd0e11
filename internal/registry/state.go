package registry

//go:generate go tool stringer -type=State -linecomment -output=state_string.go

// State is the bootstrap stage of a registry.
type State int

const (
	StateUninitialized State = iota // uninitialized
	StateBootstrapping              // bootstrapping
	StateReady                      // ready
)
