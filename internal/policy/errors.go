package policy

import "errors"

// ErrUnavailable is wrapped by Gate.Err when robots.txt could not be loaded.
// A gate in this state disallows every URL.
var ErrUnavailable = errors.New("robots policy unavailable")
