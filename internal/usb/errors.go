package usb

import "errors"

var (
	// ErrDisconnected is returned when a command needs the device and no
	// device is open.
	ErrDisconnected = errors.New("device disconnected")
	// ErrTimedOut reports a transfer that hit its deadline. For response
	// drain states this is the expected terminator, not a failure.
	ErrTimedOut = errors.New("transfer timed out")
	// ErrIO reports a failed submission or a transfer that ended with an
	// unexpected status.
	ErrIO = errors.New("USB I/O error")
)
