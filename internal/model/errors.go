package model

import "errors"

var (
	ErrInvalidMetric   = errors.New("invalid metric")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrDataAccess      = errors.New("data access failure")
)
