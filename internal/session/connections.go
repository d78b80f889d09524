package session

import (
	"github.com/rebeliceyang/sequel/internal/models"
)

// registry tracks the known server connections, the active one and the
// draft edited by a connection form. The draft is independent of active.
type registry struct {
	connections []models.ServerConnection
	active      *models.ServerConnection
	draft       *models.ServerConnection
}

// replace swaps the whole list so deleted connections never linger
func (r *registry) replace(conns []models.ServerConnection) {
	r.connections = append([]models.ServerConnection(nil), conns...)
}

func (r *registry) setActive(conn *models.ServerConnection) {
	r.active = conn.Clone()
}

func (r *registry) setDraft(conn *models.ServerConnection) {
	r.draft = conn.Clone()
}

func (r *registry) isActive(id int) bool {
	return r.active != nil && r.active.ID == id
}
