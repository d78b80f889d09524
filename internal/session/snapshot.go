package session

import (
	"github.com/rebeliceyang/sequel/internal/models"
)

// Snapshot is a detached copy of the session state. Query results are
// shared, not copied; they are never mutated after receipt.
type Snapshot struct {
	Notification     models.AppSnackbar
	Connections      []models.ServerConnection
	ActiveConnection *models.ServerConnection
	EditDraft        *models.ServerConnection
	Databases        []string
	ActiveDatabase   string
	Nodes            []*models.TreeNode
	ActiveNode       models.NodeID
	Tabs             []models.QueryTabContent
	ActiveTab        int // -1 when there is no active tab
}

// ActiveTabContent returns the active tab, if any
func (s Snapshot) ActiveTabContent() (models.QueryTabContent, bool) {
	if s.ActiveTab < 0 || s.ActiveTab >= len(s.Tabs) {
		return models.QueryTabContent{}, false
	}
	return s.Tabs[s.ActiveTab], true
}

// Snapshot returns the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Notification:     s.notice.current,
		Connections:      append([]models.ServerConnection(nil), s.registry.connections...),
		ActiveConnection: s.registry.active.Clone(),
		EditDraft:        s.registry.draft.Clone(),
		Databases:        append([]string(nil), s.catalog.databases...),
		ActiveDatabase:   s.catalog.active,
		Nodes:            s.tree.view(),
		ActiveNode:       s.tree.active,
		Tabs:             append([]models.QueryTabContent(nil), s.tabs.tabs...),
		ActiveTab:        s.tabs.activeIndex(),
	}
}

// Subscribe returns a channel that always holds the latest snapshot. A slow
// reader skips intermediate states. The current state is delivered at once.
// Call cancel to stop and close the channel.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (s *Session) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
