package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danielkolev/offersrv-sub002/internal/model"
	"github.com/danielkolev/offersrv-sub002/internal/offer"
	"github.com/danielkolev/offersrv-sub002/internal/validation"
)

var (
	// ErrNoClientName возвращается при сохранении клиента без названия.
	ErrNoClientName = errors.New("offer has no client name")
	// ErrNoProductName возвращается при сохранении товара без названия.
	ErrNoProductName = errors.New("product has no name")
)

// OfferEditor: контроллер, в который импортируются данные.
type OfferEditor interface {
	Apply(ctx context.Context, m offer.Mutation) (offer.Snapshot, error)
}

// Importer переносит записи справочников в предложение и обратно.
// Импорт заменяет раздел предложения целиком, без слияния по полям.
type Importer struct {
	catalog CatalogRepository
}

// NewImporter создаёт Importer.
func NewImporter(catalog CatalogRepository) *Importer {
	return &Importer{catalog: catalog}
}

// ImportClient заменяет раздел клиента предложения сохранённым клиентом.
func (i *Importer) ImportClient(ctx context.Context, ctrl OfferEditor, ownerID int64, clientID string) (offer.Snapshot, error) {
	c, err := i.catalog.GetClient(ctx, ownerID, clientID)
	if err != nil {
		return offer.Snapshot{}, err
	}
	return ctrl.Apply(ctx, offer.ReplaceClient{Client: c.Client})
}

// ImportProduct добавляет в предложение новую строку из каталога.
// Неположительное количество заменяется единицей.
func (i *Importer) ImportProduct(ctx context.Context, ctrl OfferEditor, ownerID int64, productID string, quantity float64) (offer.Snapshot, error) {
	p, err := i.catalog.GetProduct(ctx, ownerID, productID)
	if err != nil {
		return offer.Snapshot{}, err
	}
	if !(quantity > 0) {
		quantity = 1
	}
	return ctrl.Apply(ctx, offer.AddProduct{Product: model.Product{
		Name:        p.Name,
		PartNumber:  p.PartNumber,
		Description: p.Description,
		Quantity:    quantity,
		UnitPrice:   p.UnitPrice,
	}})
}

// SaveClientFromOffer сохраняет клиента предложения в справочник. Если в справочнике
// есть клиент с тем же номером НДС, он обновляется; иначе создаётся новый.
// created сообщает, была ли создана новая запись.
func (i *Importer) SaveClientFromOffer(ctx context.Context, ownerID int64, info model.ClientInfo) (saved model.SavedClient, created bool, err error) {
	info.Name = strings.TrimSpace(info.Name)
	if info.Name == "" {
		return model.SavedClient{}, false, ErrNoClientName
	}
	info.VATNumber = validation.NormalizeVATNumber(info.VATNumber)

	if info.VATNumber != "" {
		existing, err := i.catalog.FindClientByVAT(ctx, ownerID, info.VATNumber)
		if err != nil {
			return model.SavedClient{}, false, fmt.Errorf("find client by vat: %w", err)
		}
		if existing != nil {
			updated, err := i.catalog.UpdateClient(ctx, ownerID, existing.ID, info)
			if err != nil {
				return model.SavedClient{}, false, fmt.Errorf("update client: %w", err)
			}
			return *updated, false, nil
		}
	}

	c, err := i.catalog.CreateClient(ctx, ownerID, info)
	if err != nil {
		return model.SavedClient{}, false, fmt.Errorf("create client: %w", err)
	}
	return *c, true, nil
}

// SaveProductFromOffer сохраняет строку предложения в каталог. Совпадение ищется
// по артикулу: найденный товар обновляется, иначе создаётся новый.
func (i *Importer) SaveProductFromOffer(ctx context.Context, ownerID int64, p model.Product) (saved model.SavedProduct, created bool, err error) {
	rec := model.SavedProduct{
		Name:        strings.TrimSpace(p.Name),
		PartNumber:  strings.TrimSpace(p.PartNumber),
		Description: p.Description,
		UnitPrice:   p.UnitPrice,
	}
	if rec.Name == "" {
		return model.SavedProduct{}, false, ErrNoProductName
	}

	if rec.PartNumber != "" {
		existing, err := i.catalog.FindProductByPartNumber(ctx, ownerID, rec.PartNumber)
		if err != nil {
			return model.SavedProduct{}, false, fmt.Errorf("find product by part number: %w", err)
		}
		if existing != nil {
			updated, err := i.catalog.UpdateProduct(ctx, ownerID, existing.ID, rec)
			if err != nil {
				return model.SavedProduct{}, false, fmt.Errorf("update product: %w", err)
			}
			return *updated, false, nil
		}
	}

	np, err := i.catalog.CreateProduct(ctx, ownerID, rec)
	if err != nil {
		return model.SavedProduct{}, false, fmt.Errorf("create product: %w", err)
	}
	return *np, true, nil
}
