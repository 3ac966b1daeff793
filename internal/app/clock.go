package app

import (
	"time"

	"github.com/neomorfeo/queueiq/internal/domain"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by the wall clock in UTC.
func SystemClock() domain.Clock { return systemClock{} }
