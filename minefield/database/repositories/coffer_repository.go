package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/minefieldbot/minefield/minefield/database/models"
	"github.com/uptrace/bun"
)

type CofferRepository interface {
	GetOrCreate(ctx context.Context, serverID string) (*models.Coffer, error)
	AddAmount(ctx context.Context, serverID string, amount int) error
	SetOpening(ctx context.Context, serverID string, opening bool) error
	TotalTickets(ctx context.Context, serverID string) (int, error)
	UserTickets(ctx context.Context, serverID, userID string) (int, error)
	AllTickets(ctx context.Context, serverID string) ([]*models.CofferTicket, error)
	AddTickets(ctx context.Context, serverID, userID string, count, cost int) error
	PayoutAndReset(ctx context.Context, serverID, winnerID string) (int, error)
}

type cofferRepository struct {
	db *bun.DB
}

func NewCofferRepository(db *bun.DB) CofferRepository {
	return &cofferRepository{db: db}
}

func (r *cofferRepository) GetOrCreate(ctx context.Context, serverID string) (*models.Coffer, error) {
	coffer := new(models.Coffer)
	err := r.db.NewSelect().
		Model(coffer).
		Where("server_id = ?", serverID).
		Scan(ctx)
	if err == nil {
		return coffer, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, &RepositoryError{Operation: "GetOrCreate", Entity: "coffer", Err: err}
	}

	now := time.Now()
	coffer = &models.Coffer{ServerID: serverID, CreatedAt: now, UpdatedAt: now}
	if _, err := r.db.NewInsert().Model(coffer).Exec(ctx); err != nil {
		return nil, &RepositoryError{Operation: "GetOrCreate", Entity: "coffer", Err: err}
	}
	return coffer, nil
}

func (r *cofferRepository) AddAmount(ctx context.Context, serverID string, amount int) error {
	if _, err := r.GetOrCreate(ctx, serverID); err != nil {
		return err
	}
	_, err := r.db.NewUpdate().
		Model((*models.Coffer)(nil)).
		Set("amount = amount + ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("server_id = ?", serverID).
		Exec(ctx)
	if err != nil {
		return &RepositoryError{Operation: "AddAmount", Entity: "coffer", Err: err}
	}
	return nil
}

func (r *cofferRepository) SetOpening(ctx context.Context, serverID string, opening bool) error {
	_, err := r.db.NewUpdate().
		Model((*models.Coffer)(nil)).
		Set("opening = ?", opening).
		Set("updated_at = ?", time.Now()).
		Where("server_id = ?", serverID).
		Exec(ctx)
	if err != nil {
		return &RepositoryError{Operation: "SetOpening", Entity: "coffer", Err: err}
	}
	return nil
}

func (r *cofferRepository) TotalTickets(ctx context.Context, serverID string) (int, error) {
	var total int
	err := r.db.NewSelect().
		Model((*models.CofferTicket)(nil)).
		ColumnExpr("COALESCE(SUM(count), 0)").
		Where("server_id = ?", serverID).
		Scan(ctx, &total)
	if err != nil {
		return 0, &RepositoryError{Operation: "TotalTickets", Entity: "ticket", Err: err}
	}
	return total, nil
}

func (r *cofferRepository) UserTickets(ctx context.Context, serverID, userID string) (int, error) {
	ticket := new(models.CofferTicket)
	err := r.db.NewSelect().
		Model(ticket).
		Where("server_id = ? AND user_id = ?", serverID, userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, &RepositoryError{Operation: "UserTickets", Entity: "ticket", Err: err}
	}
	return ticket.Count, nil
}

func (r *cofferRepository) AllTickets(ctx context.Context, serverID string) ([]*models.CofferTicket, error) {
	var tickets []*models.CofferTicket
	err := r.db.NewSelect().
		Model(&tickets).
		Where("server_id = ?", serverID).
		Order("user_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, &RepositoryError{Operation: "AllTickets", Entity: "ticket", Err: err}
	}
	return tickets, nil
}

// AddTickets upserts the buyer's ticket row and debits their balance in one
// transaction; a purchase is never half-applied.
func (r *cofferRepository) AddTickets(ctx context.Context, serverID, userID string, count, cost int) error {
	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now()
		ticket := &models.CofferTicket{
			UserID:    userID,
			ServerID:  serverID,
			Count:     count,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := tx.NewInsert().
			Model(ticket).
			On("CONFLICT (user_id, server_id) DO UPDATE").
			Set("count = mt.count + EXCLUDED.count").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewUpdate().
			Model((*models.User)(nil)).
			Set("currency = currency - ?", cost).
			Set("updated_at = ?", now).
			Where("user_id = ? AND server_id = ?", userID, serverID).
			Exec(ctx)
		return err
	})
	if err != nil {
		return &RepositoryError{Operation: "AddTickets", Entity: "ticket", Err: err}
	}
	return nil
}

// PayoutAndReset credits the winner with the whole pot and zeroes the coffer
// in a single transaction, so a retried draw can never pay twice. Returns the
// amount paid.
func (r *cofferRepository) PayoutAndReset(ctx context.Context, serverID, winnerID string) (int, error) {
	var amount int
	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		coffer := new(models.Coffer)
		if err := tx.NewSelect().
			Model(coffer).
			Where("server_id = ?", serverID).
			For("UPDATE").
			Scan(ctx); err != nil {
			return err
		}
		amount = coffer.Amount

		now := time.Now()
		if _, err := tx.NewUpdate().
			Model((*models.User)(nil)).
			Set("currency = currency + ?", amount).
			Set("lifetime_currency = lifetime_currency + ?", amount).
			Set("updated_at = ?", now).
			Where("user_id = ? AND server_id = ?", winnerID, serverID).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewUpdate().
			Model((*models.Coffer)(nil)).
			Set("amount = 0").
			Set("opening = false").
			Set("updated_at = ?", now).
			Where("server_id = ?", serverID).
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().
			Model((*models.CofferTicket)(nil)).
			Where("server_id = ?", serverID).
			Exec(ctx)
		return err
	})
	if err != nil {
		return 0, &RepositoryError{Operation: "PayoutAndReset", Entity: "coffer", Err: err}
	}
	return amount, nil
}
