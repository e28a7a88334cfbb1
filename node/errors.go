package node

import "errors"

var (
	errAlreadyProcessed = errors.New("transaction already committed or rejected")
	errBlockUnavailable = errors.New("committed block unavailable")
)
