package repo

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/verticut/verticut/internal/logger"
	"github.com/verticut/verticut/internal/model"
	"github.com/verticut/verticut/internal/store"
)

// Users provides access to user rows.
type Users struct {
	st *store.Store
}

func NewUsers(st *store.Store) *Users {
	return &Users{st: st}
}

const userColumns = "id, username, passcode, role, created_at, updated_at, is_deleted"

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	var createdAt, updatedAt sql.NullString
	var isDeleted int
	err := row.Scan(&u.ID, &u.Username, &u.Passcode, &u.Role, &createdAt, &updatedAt, &isDeleted)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = parseTime(createdAt.String)
	u.UpdatedAt = parseTime(updatedAt.String)
	u.IsDeleted = isDeleted != 0
	return &u, nil
}

// Create inserts a new user. Returns (nil, nil) when the username or
// passcode collides with an existing row.
func (r *Users) Create(username, passcode, role string) (*model.User, error) {
	id := uuid.NewString()
	_, err := r.st.Write(
		"INSERT INTO users (id, username, passcode, role) VALUES (?, ?, ?, ?)",
		id, username, passcode, role,
	)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, nil
		}
		return nil, err
	}
	return r.ByID(id)
}

// ByID returns the user or nil if not found or soft-deleted.
func (r *Users) ByID(id string) (*model.User, error) {
	row := r.st.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ? AND is_deleted = 0", id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// ByPasscode returns the user owning the passcode, or nil.
func (r *Users) ByPasscode(passcode string) (*model.User, error) {
	row := r.st.QueryRow("SELECT "+userColumns+" FROM users WHERE passcode = ? AND is_deleted = 0", passcode)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// adminConfig is the optional startup file seeding the bootstrap admin.
type adminConfig struct {
	AdminPasscode string `json:"admin_passcode"`
	Proxy         string `json:"proxy,omitempty"`
}

// EnsureAdmin guarantees the bootstrap admin user exists. If configPath
// points at a readable JSON file, its admin_passcode overrides the stored
// one on every startup. Returns the proxy from the config file, if any.
func (r *Users) EnsureAdmin(configPath string) (proxy string, err error) {
	passcode := "admin"

	if configPath != "" {
		data, readErr := os.ReadFile(configPath)
		if readErr == nil {
			var cfg adminConfig
			if jsonErr := json.Unmarshal(data, &cfg); jsonErr != nil {
				logger.Error("Invalid admin config file", "path", configPath, "error", jsonErr)
			} else {
				if cfg.AdminPasscode != "" {
					passcode = cfg.AdminPasscode
				}
				proxy = cfg.Proxy
				logger.Info("Loaded admin config", "path", configPath)
			}
		} else if !os.IsNotExist(readErr) {
			logger.Error("Could not read admin config file", "path", configPath, "error", readErr)
		}
	}

	row := r.st.QueryRow("SELECT " + userColumns + " FROM users WHERE username = 'admin'")
	existing, scanErr := scanUser(row)
	if scanErr == sql.ErrNoRows {
		if _, err := r.Create("admin", passcode, model.RoleAdmin); err != nil {
			return "", fmt.Errorf("create admin user: %w", err)
		}
		logger.Info("Created bootstrap admin user")
		return proxy, nil
	}
	if scanErr != nil {
		return "", scanErr
	}

	if existing.Passcode != passcode {
		if _, err := r.st.Write("UPDATE users SET passcode = ? WHERE username = 'admin'", passcode); err != nil {
			return "", err
		}
		logger.Info("Synced admin passcode from config")
	}
	return proxy, nil
}
