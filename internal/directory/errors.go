package directory

import "errors"

// ErrRemoteMessage is returned when a caller tries to locally delete a
// message the server has already acknowledged. Only client-only, unsent
// messages may be deleted locally.
var ErrRemoteMessage = errors.New("cannot delete a remote chat message")
