package pathing

import "errors"

var (
	// ErrNoFreeSpace is an error that occurs when the output volume
	// reports less free space than [MinFreeSpace].
	ErrNoFreeSpace = errors.New("not enough free space on output volume")
)
