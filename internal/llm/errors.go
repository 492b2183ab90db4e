package llm

import "errors"

// ErrUpstream marks failures of the hosted model API. Handlers map it
// to a 502 so callers can tell provider outages apart from local faults.
var ErrUpstream = errors.New("upstream model request failed")
