package application

import "errors"

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrStaleBlock      = errors.New("block number is too old or in the future")
	ErrKeyAlreadyAdded = errors.New("key is already added")
	ErrRegistration    = errors.New("error registering account")
	ErrInvalidRequest  = errors.New("invalid request")
)
