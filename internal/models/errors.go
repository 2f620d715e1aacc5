package models

import "errors"

// ErrInvalidSession — набор cookie отсутствует, повреждён или истёк.
// Общий для подписи, сессии и движка обхода.
var ErrInvalidSession = errors.New("invalid session")
