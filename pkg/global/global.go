package global

import (
	"time"
)

var (
	Version   = "0.1.0"
	BuildTime = "none"
	Verbose   = false

	// BuilderReadyTimeout bounds how long `builder wait` polls before giving up.
	BuilderReadyTimeout = 2 * time.Minute
)
