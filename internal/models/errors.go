package models

import "errors"

var (
	errEmptyToken  = errors.New("session token is empty")
	errMissingUser = errors.New("session user is missing")
)
