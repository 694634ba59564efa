package configuration

import "errors"

var (
	// ErrBadSceneSpec is an error that occurs when a configured
	// scene/camera pairing does not parse.
	ErrBadSceneSpec = errors.New("malformed scene specification")
)
