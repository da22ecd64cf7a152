package repo

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/verticut/verticut/internal/logger"
	"github.com/verticut/verticut/internal/model"
	"github.com/verticut/verticut/internal/store"
)

// Projects provides access to project rows.
type Projects struct {
	st *store.Store
}

func NewProjects(st *store.Store) *Projects {
	return &Projects{st: st}
}

const projectColumns = "id, user_id, name, description, created_at, updated_at, is_deleted"

func scanProject(row rowScanner) (*model.Project, error) {
	var p model.Project
	var userID, description, createdAt, updatedAt sql.NullString
	var isDeleted int
	err := row.Scan(&p.ID, &userID, &p.Name, &description, &createdAt, &updatedAt, &isDeleted)
	if err != nil {
		return nil, err
	}
	p.UserID = userID.String
	p.Description = description.String
	p.CreatedAt = parseTime(createdAt.String)
	p.UpdatedAt = parseTime(updatedAt.String)
	p.IsDeleted = isDeleted != 0
	return &p, nil
}

// Create inserts a new project. userID may be empty for unowned projects.
func (r *Projects) Create(name, userID, description string) (*model.Project, error) {
	id := uuid.NewString()
	_, err := r.st.Write(
		"INSERT INTO projects (id, user_id, name, description) VALUES (?, ?, ?, ?)",
		id, nullString(userID), name, nullString(description),
	)
	if err != nil {
		return nil, err
	}
	logger.Info("Created project", "project_id", id, "name", name)
	return r.ByID(id)
}

// ByID returns the project or nil if not found or soft-deleted.
func (r *Projects) ByID(id string) (*model.Project, error) {
	row := r.st.QueryRow("SELECT "+projectColumns+" FROM projects WHERE id = ? AND is_deleted = 0", id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// List returns projects newest-first, optionally filtered by owner.
func (r *Projects) List(userID string, includeDeleted bool) ([]*model.Project, error) {
	query := "SELECT " + projectColumns + " FROM projects WHERE 1=1"
	var args []any
	if !includeDeleted {
		query += " AND is_deleted = 0"
	}
	if userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.st.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// projectUpdateFields gates which columns Update may touch.
var projectUpdateFields = map[string]bool{
	"name":        true,
	"description": true,
}

// Update applies the allowed subset of fields and returns the fresh row.
func (r *Projects) Update(id string, fields map[string]any) (*model.Project, error) {
	setClauses, values := buildUpdate(fields, projectUpdateFields)
	if len(setClauses) == 0 {
		return r.ByID(id)
	}
	values = append(values, id)
	_, err := r.st.Write(
		fmt.Sprintf("UPDATE projects SET %s WHERE id = ?", strings.Join(setClauses, ", ")),
		values...,
	)
	if err != nil {
		return nil, err
	}
	logger.Info("Updated project", "project_id", id)
	return r.ByID(id)
}

// Delete soft-deletes by default; hard delete cascades to videos, captions
// and jobs via foreign keys.
func (r *Projects) Delete(id string, hard bool) error {
	var err error
	if hard {
		_, err = r.st.Write("DELETE FROM projects WHERE id = ?", id)
	} else {
		_, err = r.st.Write("UPDATE projects SET is_deleted = 1 WHERE id = ?", id)
	}
	if err == nil {
		logger.Info("Deleted project", "project_id", id, "hard", hard)
	}
	return err
}

// Restore clears the soft-delete flag.
func (r *Projects) Restore(id string) (*model.Project, error) {
	if _, err := r.st.Write("UPDATE projects SET is_deleted = 0 WHERE id = ?", id); err != nil {
		return nil, err
	}
	return r.ByID(id)
}

// buildUpdate filters fields through an allowed-column set, preserving only
// recognized keys. Shared by the entity repositories.
func buildUpdate(fields map[string]any, allowed map[string]bool) (setClauses []string, values []any) {
	for k, v := range fields {
		if !allowed[k] {
			continue
		}
		setClauses = append(setClauses, k+" = ?")
		values = append(values, v)
	}
	return setClauses, values
}
