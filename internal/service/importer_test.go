package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielkolev/offersrv-sub002/internal/model"
	"github.com/danielkolev/offersrv-sub002/internal/offer"
	"github.com/danielkolev/offersrv-sub002/internal/repository"
)

func TestSaveClientFromOffer_UpdatesByVAT(t *testing.T) {
	ctx := context.Background()
	catalog := newMemCatalog()
	imp := NewImporter(catalog)

	existing, err := catalog.CreateClient(ctx, 1, model.ClientInfo{Name: "Acme", VATNumber: "DE123456789"})
	require.NoError(t, err)

	saved, created, err := imp.SaveClientFromOffer(ctx, 1, model.ClientInfo{
		Name:      "Acme GmbH",
		VATNumber: " de 123 456 789 ",
		City:      "Berlin",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, saved.ID)
	assert.Equal(t, "Acme GmbH", saved.Client.Name)
	assert.Equal(t, "DE123456789", saved.Client.VATNumber)
	assert.Len(t, catalog.clients, 1)
}

func TestSaveClientFromOffer_CreatesWhenNoMatch(t *testing.T) {
	ctx := context.Background()
	catalog := newMemCatalog()
	imp := NewImporter(catalog)

	_, err := catalog.CreateClient(ctx, 1, model.ClientInfo{Name: "Acme", VATNumber: "DE123456789"})
	require.NoError(t, err)

	tests := []struct {
		name string
		info model.ClientInfo
	}{
		{"no vat number", model.ClientInfo{Name: "Acme"}},
		{"different vat number", model.ClientInfo{Name: "Beta", VATNumber: "FR999"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saved, created, err := imp.SaveClientFromOffer(ctx, 1, tt.info)
			require.NoError(t, err)
			assert.True(t, created)
			assert.NotEmpty(t, saved.ID)
		})
	}
	assert.Len(t, catalog.clients, 3)
}

func TestSaveClientFromOffer_VATMatchIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	catalog := newMemCatalog()
	imp := NewImporter(catalog)

	_, err := catalog.CreateClient(ctx, 2, model.ClientInfo{Name: "Acme", VATNumber: "DE123456789"})
	require.NoError(t, err)

	_, created, err := imp.SaveClientFromOffer(ctx, 1, model.ClientInfo{Name: "Acme", VATNumber: "DE123456789"})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestSaveClientFromOffer_NoNameIsError(t *testing.T) {
	catalog := newMemCatalog()
	imp := NewImporter(catalog)

	_, _, err := imp.SaveClientFromOffer(context.Background(), 1, model.ClientInfo{Name: "   ", VATNumber: "DE123456789"})
	assert.ErrorIs(t, err, ErrNoClientName)
	assert.Zero(t, catalog.writes)
}

func TestSaveProductFromOffer(t *testing.T) {
	ctx := context.Background()
	catalog := newMemCatalog()
	imp := NewImporter(catalog)

	first, created, err := imp.SaveProductFromOffer(ctx, 1, model.Product{Name: "Pump", PartNumber: "P-100", UnitPrice: 10, Quantity: 4})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := imp.SaveProductFromOffer(ctx, 1, model.Product{Name: "Pump v2", PartNumber: " P-100 ", UnitPrice: 12})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.InDelta(t, 12, second.UnitPrice, 1e-9)

	_, created, err = imp.SaveProductFromOffer(ctx, 1, model.Product{Name: "Hose"})
	require.NoError(t, err)
	assert.True(t, created)

	_, _, err = imp.SaveProductFromOffer(ctx, 1, model.Product{PartNumber: "P-100"})
	assert.ErrorIs(t, err, ErrNoProductName)
	assert.Len(t, catalog.products, 2)
}

func TestImportClient_ReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	catalog := newMemCatalog()
	imp := NewImporter(catalog)

	saved, err := catalog.CreateClient(ctx, 1, model.ClientInfo{Name: "Acme", VATNumber: "DE123456789"})
	require.NoError(t, err)

	ctrl := offer.New()
	_, err = ctrl.UpdateClientInfo(ctx, offer.UpdateClient{Name: ptrTo("Old"), Phone: ptrTo("555")})
	require.NoError(t, err)

	snap, err := imp.ImportClient(ctx, ctrl, 1, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Client, snap.Offer.Client)

	_, err = imp.ImportClient(ctx, ctrl, 1, "missing")
	assert.ErrorIs(t, err, repository.ErrClientNotFound)
	_, err = imp.ImportClient(ctx, ctrl, 2, saved.ID)
	assert.ErrorIs(t, err, repository.ErrClientNotFound)
}

func TestImportProduct_AppendsLine(t *testing.T) {
	ctx := context.Background()
	catalog := newMemCatalog()
	imp := NewImporter(catalog)

	saved, err := catalog.CreateProduct(ctx, 1, model.SavedProduct{Name: "Valve", PartNumber: "V-1", UnitPrice: 25})
	require.NoError(t, err)

	ctrl := offer.New()
	_, err = imp.ImportProduct(ctx, ctrl, 1, saved.ID, 0)
	require.NoError(t, err)
	snap, err := imp.ImportProduct(ctx, ctrl, 1, saved.ID, 3)
	require.NoError(t, err)

	require.Len(t, snap.Offer.Products, 2)
	assert.Equal(t, "Valve", snap.Offer.Products[0].Name)
	assert.InDelta(t, 1, snap.Offer.Products[0].Quantity, 1e-9)
	assert.InDelta(t, 3, snap.Offer.Products[1].Quantity, 1e-9)
	assert.NotEqual(t, snap.Offer.Products[0].ID, snap.Offer.Products[1].ID)
	assert.InDelta(t, 100, snap.Totals.Subtotal, 1e-9)
}
