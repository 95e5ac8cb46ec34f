package container

import "errors"

// errMissingIdentityField reports a replicated payload without an
// identity field. Such a delta cannot be routed and is dropped.
var errMissingIdentityField = errors.New("replicated payload has no identity field")
