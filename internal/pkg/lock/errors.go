package lock

import "errors"

// ErrBusy is returned by Guard when the account already has a request in flight.
var ErrBusy = errors.New("account busy")
