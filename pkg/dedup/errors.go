package dedup

import "errors"

// ErrInvalidKeepID is returned when the builder to keep is not a member of the group
var ErrInvalidKeepID = errors.New("keep id is not a member of the duplicate group")
