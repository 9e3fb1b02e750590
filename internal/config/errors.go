package config

import "errors"

// ErrInvalidQueue and ErrInvalidMap are configuration-parse errors:
// fatal at startup, since an unrecognized queue or map name can never
// become valid by retrying.
var (
	ErrInvalidQueue = errors.New("config: invalid queue")
	ErrInvalidMap   = errors.New("config: invalid map")
)
