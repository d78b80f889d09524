package session

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/rebeliceyang/sequel/internal/models"
)

// tabSession is the ordered set of query tabs. Tabs are addressed by
// position for display and selection, and by id for content merges, since
// a tab can move or disappear between an edit being issued and applied.
type tabSession struct {
	tabs     []models.QueryTabContent
	activeID string
	newID    func() string
}

func newTabSession() tabSession {
	return tabSession{newID: func() string { return uuid.NewString() }}
}

// open appends a tab numbered one past the highest live number and makes it active
func (s *tabSession) open() models.QueryTabContent {
	num := 1
	for _, t := range s.tabs {
		if t.Num >= num {
			num = t.Num + 1
		}
	}

	tab := models.QueryTabContent{
		ID:    s.newID(),
		Num:   num,
		Title: fmt.Sprintf("query%d", num),
	}
	s.tabs = append(s.tabs, tab)
	s.activeID = tab.ID
	return tab
}

// close removes the tab at pos. When it was the active tab the tab that
// slides into pos becomes active, or the new last tab if pos was the end.
func (s *tabSession) close(pos int) (models.QueryTabContent, error) {
	if pos < 0 || pos >= len(s.tabs) {
		return models.QueryTabContent{}, fmt.Errorf("close tab %d of %d: %w", pos, len(s.tabs), ErrInvalidTabReference)
	}

	removed := s.tabs[pos]
	s.tabs = append(s.tabs[:pos:pos], s.tabs[pos+1:]...)

	if removed.ID == s.activeID {
		switch {
		case len(s.tabs) == 0:
			s.activeID = ""
		case pos < len(s.tabs):
			s.activeID = s.tabs[pos].ID
		default:
			s.activeID = s.tabs[len(s.tabs)-1].ID
		}
	}
	return removed, nil
}

func (s *tabSession) setActive(pos int) error {
	if pos < 0 || pos >= len(s.tabs) {
		return fmt.Errorf("activate tab %d of %d: %w", pos, len(s.tabs), ErrInvalidTabReference)
	}
	s.activeID = s.tabs[pos].ID
	return nil
}

// mergeEditor copies only the editor payload onto the tab with the same id.
// Unknown ids are ignored.
func (s *tabSession) mergeEditor(tab models.QueryTabContent) bool {
	i := s.indexOf(tab.ID)
	if i < 0 {
		return false
	}
	s.tabs[i].Editor = tab.Editor
	return true
}

func (s *tabSession) setResult(id string, resp *models.QueryResponseContext) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.tabs[i].Result = resp
	return true
}

func (s *tabSession) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, t := range s.tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// activeIndex is derived from the active id; -1 when there is no active tab
func (s *tabSession) activeIndex() int {
	return s.indexOf(s.activeID)
}

func (s *tabSession) active() (models.QueryTabContent, bool) {
	i := s.activeIndex()
	if i < 0 {
		return models.QueryTabContent{}, false
	}
	return s.tabs[i], true
}
