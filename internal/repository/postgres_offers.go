package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/danielkolev/offersrv-sub002/internal/model"
)

const offerColumns = `id, owner_id, offer_data, is_draft, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOffer(row rowScanner) (*model.SavedOffer, error) {
	var (
		so   model.SavedOffer
		id   uuid.UUID
		data []byte
	)
	if err := row.Scan(&id, &so.OwnerID, &data, &so.IsDraft, &so.CreatedAt, &so.UpdatedAt); err != nil {
		return nil, err
	}

	o, err := model.DecodeOffer(data)
	if err != nil {
		return nil, fmt.Errorf("decode offer_data: %w", err)
	}
	o.IsDraft = so.IsDraft

	so.ID = id.String()
	so.Offer = o
	return &so, nil
}

// GetLatestDraft возвращает самый свежий черновик владельца или nil, если черновика нет.
func (r *PostgresRepository) GetLatestDraft(ctx context.Context, ownerID int64) (*model.SavedOffer, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+offerColumns+`
		 FROM offers
		 WHERE owner_id = $1 AND is_draft
		 ORDER BY created_at DESC
		 LIMIT 1`,
		ownerID,
	)

	so, err := scanOffer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get latest draft", err)
	}
	return so, nil
}

// UpsertDraft создаёт или обновляет единственный черновик владельца.
// Частичный уникальный индекс offers_one_draft_per_owner не допускает второй черновик,
// поэтому известный id черновика здесь не нужен.
func (r *PostgresRepository) UpsertDraft(ctx context.Context, ownerID int64, _ string, o model.Offer) (*model.SavedOffer, error) {
	o.IsDraft = true
	data, err := json.Marshal(o)
	if err != nil {
		return nil, storeErr("marshal draft", err)
	}

	var so *model.SavedOffer
	err = r.withRetry(ctx, func() error {
		row := r.pool.QueryRow(ctx,
			`INSERT INTO offers (id, owner_id, offer_data, is_draft)
			 VALUES ($1, $2, $3, TRUE)
			 ON CONFLICT (owner_id) WHERE is_draft
			 DO UPDATE SET offer_data = EXCLUDED.offer_data, updated_at = now()
			 RETURNING `+offerColumns,
			uuid.New(), ownerID, data,
		)
		var scanErr error
		so, scanErr = scanOffer(row)
		return scanErr
	})
	if err != nil {
		return nil, storeErr("upsert draft", err)
	}
	return so, nil
}

// Finalize переводит черновик в постоянное сохранённое предложение.
func (r *PostgresRepository) Finalize(ctx context.Context, draftID string) (*model.SavedOffer, error) {
	id, err := uuid.Parse(draftID)
	if err != nil {
		return nil, ErrOfferNotFound
	}

	row := r.pool.QueryRow(ctx,
		`UPDATE offers
		 SET is_draft = FALSE,
		     offer_data = jsonb_set(offer_data, '{isDraft}', 'false'::jsonb),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+offerColumns,
		id,
	)

	so, err := scanOffer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, storeErr("finalize offer", err)
	}
	return so, nil
}

// Delete удаляет предложение. Удаление отсутствующего предложения ошибкой не считается.
func (r *PostgresRepository) Delete(ctx context.Context, offerID string) error {
	id, err := uuid.Parse(offerID)
	if err != nil {
		return nil
	}

	if _, err := r.pool.Exec(ctx, `DELETE FROM offers WHERE id = $1`, id); err != nil {
		return storeErr("delete offer", err)
	}
	return nil
}

// GetOffer возвращает предложение владельца по идентификатору.
func (r *PostgresRepository) GetOffer(ctx context.Context, ownerID int64, offerID string) (*model.SavedOffer, error) {
	id, err := uuid.Parse(offerID)
	if err != nil {
		return nil, ErrOfferNotFound
	}

	row := r.pool.QueryRow(ctx,
		`SELECT `+offerColumns+` FROM offers WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)

	so, err := scanOffer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, storeErr("get offer", err)
	}
	return so, nil
}

// ListOffers возвращает предложения владельца, начиная с самых новых.
func (r *PostgresRepository) ListOffers(ctx context.Context, ownerID int64) ([]model.SavedOffer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+offerColumns+`
		 FROM offers
		 WHERE owner_id = $1
		 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, storeErr("select offers", err)
	}
	defer rows.Close()

	var res []model.SavedOffer
	for rows.Next() {
		so, err := scanOffer(rows)
		if err != nil {
			return nil, storeErr("scan offer", err)
		}
		res = append(res, *so)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("rows error", err)
	}

	return res, nil
}
