package alarm

import "errors"

var (
	ErrNoCapacity        = errors.New("alarm: no free slot")
	ErrInvalidExpression = errors.New("alarm: invalid cron expression")
	ErrInvalidID         = errors.New("alarm: id out of range")
	ErrNilCallback       = errors.New("alarm: callback required")
)
