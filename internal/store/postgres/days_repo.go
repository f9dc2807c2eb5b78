package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"slotbook/internal/domain"
	"slotbook/internal/store"
)

type dayRow struct {
	bun.BaseModel `bun:"table:day_documents"`

	Date      string             `bun:"date,pk"`
	Doc       domain.DayDocument `bun:"doc,type:jsonb,notnull"`
	UpdatedAt time.Time          `bun:"updated_at,notnull"`
}

func (r *dayRow) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery, *bun.UpdateQuery:
		r.UpdatedAt = time.Now().UTC()
	}
	return nil
}

type DayRepo struct {
	db bun.IDB
}

func NewDayRepo(db bun.IDB) *DayRepo {
	return &DayRepo{db: db}
}

func (r *DayRepo) Get(ctx context.Context, date string) (domain.DayDocument, error) {
	row := dayRow{Date: date}
	err := r.db.NewSelect().Model(&row).WherePK().Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DayDocument{}, store.ErrNotFound
		}
		return domain.DayDocument{}, err
	}
	return row.Doc.Normalized(), nil
}

func (r *DayRepo) Update(ctx context.Context, date string, fn store.UpdateFunc) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockDay(ctx, tx, date); err != nil {
			return err
		}

		row := dayRow{Date: date}
		day := domain.EmptyDay()
		err := tx.NewSelect().Model(&row).WherePK().For("UPDATE").Scan(ctx)
		switch {
		case err == nil:
			day = row.Doc.Normalized()
		case errors.Is(err, sql.ErrNoRows):
		default:
			return err
		}

		next, err := fn(day)
		if err != nil {
			return err
		}

		row = dayRow{Date: date, Doc: next.Normalized()}
		_, err = tx.NewInsert().
			Model(&row).
			On("CONFLICT (date) DO UPDATE").
			Set("doc = EXCLUDED.doc").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		return err
	})
}

// lockDay serializes writers of one date for the rest of the transaction.
func lockDay(ctx context.Context, tx bun.Tx, date string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", "day:"+date).Exec(ctx)
	return err
}

func (r *DayRepo) ListDates(ctx context.Context, start, end string) ([]string, error) {
	var dates []string
	err := r.db.NewSelect().
		Model((*dayRow)(nil)).
		Column("date").
		Where("date >= ?", start).
		Where("date <= ?", end).
		OrderExpr("date ASC").
		Scan(ctx, &dates)
	if err != nil {
		return nil, err
	}
	return dates, nil
}

func (r *DayRepo) Ping(ctx context.Context) error {
	_, err := r.db.NewRaw("SELECT 1").Exec(ctx)
	return err
}
