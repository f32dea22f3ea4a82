package console

import "errors"

// ErrPresetNotFound is returned when a preset reference matches neither
// an id nor a name in the library.
var ErrPresetNotFound = errors.New("preset not found")
