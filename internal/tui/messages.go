package tui

import (
	"github.com/kagemura/tosho/internal/cache"
)

// Message types for the TUI

// CacheUpdatedMsg signals that a cached query key changed and dependent
// views should re-render from a fresh Subscribe snapshot
type CacheUpdatedMsg struct {
	Key cache.Key
}

// UpdatesClosedMsg signals that the session was closed
type UpdatesClosedMsg struct{}

// PollTickMsg drives the background revalidation cadence
type PollTickMsg struct{}
