package archive

import "errors"

// ErrNotExist is returned for missing container entries.
var ErrNotExist = errors.New("file does not exist")
