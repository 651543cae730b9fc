package domain

import "errors"

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExists    = errors.New("session already exists")
	ErrInvalidSessionID = errors.New("session id must not be blank")
	ErrStoreClosed      = errors.New("session store closed")
	ErrMalformedStore   = errors.New("session document is malformed")
)
