package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrNotConnected  = errors.New("not connected")
	ErrAuthRejected  = errors.New("authentication rejected")
	ErrWSDisconnect  = errors.New("websocket disconnected")
	ErrUnrecoverable = errors.New("unrecoverable stream failure")
)
