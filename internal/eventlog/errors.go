package eventlog

import "errors"

// ErrClosed is returned by any Store operation attempted after Close.
var ErrClosed = errors.New("eventlog: store is closed")
