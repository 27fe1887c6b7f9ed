package sim

import "github.com/rs/xid"

// NewRunID returns a globally unique name for one simulation run.
func NewRunID() string {
	return xid.New().String()
}
