package domain

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("resource not found")
	ErrGeneration     = errors.New("content generation failed")
	ErrPublish        = errors.New("publishing failed")
	ErrStore          = errors.New("record store failure")
	ErrScheduling     = errors.New("job dispatch failed")
	ErrJobFinalized   = errors.New("job already in terminal state")
)
