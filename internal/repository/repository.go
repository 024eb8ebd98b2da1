package repository

import (
	"errors"
	"time"
)

const QueryTimeout = 10 * time.Second

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicateReview = errors.New("review already stored")
)
