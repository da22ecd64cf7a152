// Package repo provides typed CRUD over the store, one repository per
// entity. All reads exclude soft-deleted rows unless asked otherwise, and
// allowed-field lists gate every update.
package repo

import (
	"github.com/verticut/verticut/internal/store"
)

// Repos bundles the per-entity repositories sharing one store.
type Repos struct {
	Users    *Users
	Projects *Projects
	Videos   *Videos
	Captions *Captions
	Jobs     *Jobs
	Settings *Settings
}

// New constructs all repositories over st.
func New(st *store.Store) *Repos {
	return &Repos{
		Users:    NewUsers(st),
		Projects: NewProjects(st),
		Videos:   NewVideos(st),
		Captions: NewCaptions(st),
		Jobs:     NewJobs(st),
		Settings: NewSettings(st),
	}
}
