package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kagemura/tosho/internal/cache"
	"github.com/kagemura/tosho/internal/library"
)

// Command factories for async operations

// WaitForUpdateCmd blocks on the session's update channel and converts the
// next change notification into a message. Re-issued after every receipt.
func WaitForUpdateCmd(sess *library.Session) tea.Cmd {
	return func() tea.Msg {
		key, ok := <-sess.Updates()
		if !ok {
			return UpdatesClosedMsg{}
		}
		return CacheUpdatedMsg{Key: key}
	}
}

// PollTickCmd schedules the next background revalidation tick
func PollTickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return PollTickMsg{}
	})
}

// RefreshCmd forces revalidation of a query key
func RefreshCmd(sess *library.Session, key cache.Key) tea.Cmd {
	return func() tea.Msg {
		sess.Refresh(key)
		return nil
	}
}
