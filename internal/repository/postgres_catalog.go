package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/danielkolev/offersrv-sub002/internal/model"
)

const clientColumns = `id, owner_id, name, contact_person, address, city, country, vat_number, email, phone, created_at, updated_at`

func scanClient(row rowScanner) (*model.SavedClient, error) {
	var (
		c  model.SavedClient
		id uuid.UUID
	)
	err := row.Scan(&id, &c.OwnerID,
		&c.Client.Name, &c.Client.ContactPerson, &c.Client.Address, &c.Client.City,
		&c.Client.Country, &c.Client.VATNumber, &c.Client.Email, &c.Client.Phone,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.ID = id.String()
	return &c, nil
}

// ListClients возвращает справочник клиентов владельца.
func (r *PostgresRepository) ListClients(ctx context.Context, ownerID int64) ([]model.SavedClient, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE owner_id = $1 ORDER BY name`,
		ownerID,
	)
	if err != nil {
		return nil, storeErr("select clients", err)
	}
	defer rows.Close()

	var res []model.SavedClient
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, storeErr("scan client", err)
		}
		res = append(res, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("rows error", err)
	}
	return res, nil
}

// GetClient возвращает клиента владельца по идентификатору.
func (r *PostgresRepository) GetClient(ctx context.Context, ownerID int64, clientID string) (*model.SavedClient, error) {
	id, err := uuid.Parse(clientID)
	if err != nil {
		return nil, ErrClientNotFound
	}

	c, err := scanClient(r.pool.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, storeErr("get client", err)
	}
	return c, nil
}

// FindClientByVAT ищет клиента по точному совпадению номера НДС. Возвращает nil, если клиента нет.
func (r *PostgresRepository) FindClientByVAT(ctx context.Context, ownerID int64, vatNumber string) (*model.SavedClient, error) {
	c, err := scanClient(r.pool.QueryRow(ctx,
		`SELECT `+clientColumns+`
		 FROM clients
		 WHERE owner_id = $1 AND vat_number = $2
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		ownerID, vatNumber,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("find client by vat", err)
	}
	return c, nil
}

// CreateClient добавляет клиента в справочник.
func (r *PostgresRepository) CreateClient(ctx context.Context, ownerID int64, info model.ClientInfo) (*model.SavedClient, error) {
	c, err := scanClient(r.pool.QueryRow(ctx,
		`INSERT INTO clients (id, owner_id, name, contact_person, address, city, country, vat_number, email, phone)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+clientColumns,
		uuid.New(), ownerID,
		info.Name, info.ContactPerson, info.Address, info.City,
		info.Country, info.VATNumber, info.Email, info.Phone,
	))
	if err != nil {
		return nil, storeErr("create client", err)
	}
	return c, nil
}

// UpdateClient перезаписывает данные клиента целиком.
func (r *PostgresRepository) UpdateClient(ctx context.Context, ownerID int64, clientID string, info model.ClientInfo) (*model.SavedClient, error) {
	id, err := uuid.Parse(clientID)
	if err != nil {
		return nil, ErrClientNotFound
	}

	c, err := scanClient(r.pool.QueryRow(ctx,
		`UPDATE clients
		 SET name = $3, contact_person = $4, address = $5, city = $6, country = $7,
		     vat_number = $8, email = $9, phone = $10, updated_at = now()
		 WHERE id = $1 AND owner_id = $2
		 RETURNING `+clientColumns,
		id, ownerID,
		info.Name, info.ContactPerson, info.Address, info.City,
		info.Country, info.VATNumber, info.Email, info.Phone,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, storeErr("update client", err)
	}
	return c, nil
}

const productColumns = `id, owner_id, name, part_number, description, unit_price, created_at, updated_at`

func scanProduct(row rowScanner) (*model.SavedProduct, error) {
	var (
		p  model.SavedProduct
		id uuid.UUID
	)
	err := row.Scan(&id, &p.OwnerID, &p.Name, &p.PartNumber, &p.Description, &p.UnitPrice, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ID = id.String()
	return &p, nil
}

// ListProducts возвращает каталог товаров владельца.
func (r *PostgresRepository) ListProducts(ctx context.Context, ownerID int64) ([]model.SavedProduct, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE owner_id = $1 ORDER BY name`,
		ownerID,
	)
	if err != nil {
		return nil, storeErr("select products", err)
	}
	defer rows.Close()

	var res []model.SavedProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, storeErr("scan product", err)
		}
		res = append(res, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("rows error", err)
	}
	return res, nil
}

// GetProduct возвращает товар владельца по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, ownerID int64, productID string) (*model.SavedProduct, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return nil, ErrProductNotFound
	}

	p, err := scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, storeErr("get product", err)
	}
	return p, nil
}

// FindProductByPartNumber ищет товар по точному совпадению артикула. Возвращает nil, если товара нет.
func (r *PostgresRepository) FindProductByPartNumber(ctx context.Context, ownerID int64, partNumber string) (*model.SavedProduct, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+`
		 FROM products
		 WHERE owner_id = $1 AND part_number = $2
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		ownerID, partNumber,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("find product by part number", err)
	}
	return p, nil
}

// CreateProduct добавляет товар в каталог.
func (r *PostgresRepository) CreateProduct(ctx context.Context, ownerID int64, p model.SavedProduct) (*model.SavedProduct, error) {
	created, err := scanProduct(r.pool.QueryRow(ctx,
		`INSERT INTO products (id, owner_id, name, part_number, description, unit_price)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+productColumns,
		uuid.New(), ownerID, p.Name, p.PartNumber, p.Description, p.UnitPrice,
	))
	if err != nil {
		return nil, storeErr("create product", err)
	}
	return created, nil
}

// UpdateProduct перезаписывает данные товара целиком.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, ownerID int64, productID string, p model.SavedProduct) (*model.SavedProduct, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return nil, ErrProductNotFound
	}

	updated, err := scanProduct(r.pool.QueryRow(ctx,
		`UPDATE products
		 SET name = $3, part_number = $4, description = $5, unit_price = $6, updated_at = now()
		 WHERE id = $1 AND owner_id = $2
		 RETURNING `+productColumns,
		id, ownerID, p.Name, p.PartNumber, p.Description, p.UnitPrice,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, storeErr("update product", err)
	}
	return updated, nil
}
