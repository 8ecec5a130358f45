package scene

import "errors"

var (
	ErrDuplicateName = errors.New("scene: duplicate object name")
	ErrNotFound      = errors.New("scene: object not found")
	ErrAlreadyBound  = errors.New("scene: binding already attached for role")
	ErrTypeMismatch  = errors.New("scene: value does not match attribute type")
	ErrUnknownAttr   = errors.New("scene: unknown attribute")
	ErrDestroyed     = errors.New("scene: object destroyed")
)
