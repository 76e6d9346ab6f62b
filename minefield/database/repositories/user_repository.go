package repositories

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/minefieldbot/minefield/minefield/database/models"
	"github.com/sahilm/fuzzy"
	"github.com/uptrace/bun"
)

type UserRepository interface {
	GetOrCreate(ctx context.Context, userID, serverID, username string) (*models.User, error)
	Get(ctx context.Context, userID, serverID string) (*models.User, error)
	GetByUsername(ctx context.Context, username, serverID string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	SaveAll(ctx context.Context, users ...*models.User) error
	Reset(ctx context.Context, userID, serverID string) (*models.User, error)
	Leaderboard(ctx context.Context, serverID string, limit int) ([]*models.User, error)
	GetAllUsernames(ctx context.Context, serverID string) ([]string, error)
	GetDeadUsernames(ctx context.Context, serverID string) ([]string, error)
	CountParticipants(ctx context.Context, serverID string) (int, error)
}

const usernameCacheSize = 128

type userRepository struct {
	db *bun.DB
	// usernames per server, invalidated on create/rename/reset
	usernameCache *lru.Cache
}

func NewUserRepository(db *bun.DB) UserRepository {
	cache, _ := lru.New(usernameCacheSize)
	return &userRepository{db: db, usernameCache: cache}
}

func (r *userRepository) GetOrCreate(ctx context.Context, userID, serverID, username string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("user_id = ? AND server_id = ?", userID, serverID).
		Scan(ctx)

	if err == nil {
		if user.Username != username {
			user.Username = username
			r.usernameCache.Remove(serverID)
			if err := r.Update(ctx, user); err != nil {
				return nil, err
			}
		}
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, &RepositoryError{Operation: "GetOrCreate", Entity: "user", Err: err}
	}

	user = models.NewUser(userID, serverID, username)
	if _, err := r.db.NewInsert().Model(user).Exec(ctx); err != nil {
		return nil, &RepositoryError{Operation: "GetOrCreate", Entity: "user", Err: err}
	}
	r.usernameCache.Remove(serverID)

	slog.Debug("Created minefield user",
		slog.String("type", "db"),
		slog.String("user_id", userID),
		slog.String("server_id", serverID),
		slog.String("user_name", username))
	return user, nil
}

func (r *userRepository) Get(ctx context.Context, userID, serverID string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("user_id = ? AND server_id = ?", userID, serverID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Entity: "user", ID: userID}
		}
		return nil, &RepositoryError{Operation: "Get", Entity: "user", Err: err}
	}
	return user, nil
}

// GetByUsername resolves a username to a user record, case-insensitively.
// An exact match wins; otherwise the server's username list is fuzzy-matched
// so "!status jhon" still finds "John".
func (r *userRepository) GetByUsername(ctx context.Context, username, serverID string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("server_id = ? AND lower(username) = ?", serverID, strings.ToLower(username)).
		Scan(ctx)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, &RepositoryError{Operation: "GetByUsername", Entity: "user", Err: err}
	}

	usernames, err := r.GetAllUsernames(ctx, serverID)
	if err != nil {
		return nil, err
	}
	matches := fuzzy.Find(username, usernames)
	if len(matches) == 0 {
		return nil, &NotFoundError{Entity: "user", ID: username}
	}
	return r.getByExactUsername(ctx, matches[0].Str, serverID)
}

func (r *userRepository) getByExactUsername(ctx context.Context, username, serverID string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("server_id = ? AND username = ?", serverID, username).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Entity: "user", ID: username}
		}
		return nil, &RepositoryError{Operation: "GetByUsername", Entity: "user", Err: err}
	}
	return user, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()
	_, err := r.db.NewUpdate().
		Model(user).
		WherePK().
		Exec(ctx)
	if err != nil {
		return &RepositoryError{Operation: "Update", Entity: "user", Err: err}
	}
	return nil
}

// SaveAll persists a batch of touched users in one transaction so a message's
// earnings fan-out is never half-visible.
func (r *userRepository) SaveAll(ctx context.Context, users ...*models.User) error {
	if len(users) == 0 {
		return nil
	}
	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now()
		for _, user := range users {
			user.UpdatedAt = now
			if _, err := tx.NewUpdate().Model(user).WherePK().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &RepositoryError{Operation: "SaveAll", Entity: "user", Err: err}
	}
	return nil
}

// Reset deletes and recreates the record, preserving identity and username
// but zeroing all progress.
func (r *userRepository) Reset(ctx context.Context, userID, serverID string) (*models.User, error) {
	existing, err := r.Get(ctx, userID, serverID)
	if err != nil {
		return nil, err
	}

	fresh := models.NewUser(userID, serverID, existing.Username)
	err = r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.User)(nil)).
			Where("user_id = ? AND server_id = ?", userID, serverID).
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(fresh).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, &RepositoryError{Operation: "Reset", Entity: "user", Err: err}
	}
	return fresh, nil
}

func (r *userRepository) Leaderboard(ctx context.Context, serverID string, limit int) ([]*models.User, error) {
	var users []*models.User
	err := r.db.NewSelect().
		Model(&users).
		Where("server_id = ?", serverID).
		Order("lifetime_currency DESC", "username ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, &RepositoryError{Operation: "Leaderboard", Entity: "user", Err: err}
	}
	return users, nil
}

func (r *userRepository) GetAllUsernames(ctx context.Context, serverID string) ([]string, error) {
	if cached, ok := r.usernameCache.Get(serverID); ok {
		return cached.([]string), nil
	}

	var usernames []string
	err := r.db.NewSelect().
		Model((*models.User)(nil)).
		Column("username").
		Where("server_id = ?", serverID).
		Order("username ASC").
		Scan(ctx, &usernames)
	if err != nil {
		return nil, &RepositoryError{Operation: "GetAllUsernames", Entity: "user", Err: err}
	}

	r.usernameCache.Add(serverID, usernames)
	return usernames, nil
}

func (r *userRepository) GetDeadUsernames(ctx context.Context, serverID string) ([]string, error) {
	var usernames []string
	err := r.db.NewSelect().
		Model((*models.User)(nil)).
		Column("username").
		Where("server_id = ? AND is_alive = FALSE", serverID).
		Order("username ASC").
		Scan(ctx, &usernames)
	if err != nil {
		return nil, &RepositoryError{Operation: "GetDeadUsernames", Entity: "user", Err: err}
	}
	return usernames, nil
}

// CountParticipants counts users who have sent at least one message; the
// coffer opening threshold scales with this.
func (r *userRepository) CountParticipants(ctx context.Context, serverID string) (int, error) {
	count, err := r.db.NewSelect().
		Model((*models.User)(nil)).
		Where("server_id = ? AND total_messages > 0", serverID).
		Count(ctx)
	if err != nil {
		return 0, &RepositoryError{Operation: "CountParticipants", Entity: "user", Err: err}
	}
	return count, nil
}
