package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/danielkolev/offersrv-sub002/internal/model"
	"github.com/danielkolev/offersrv-sub002/internal/repository"
)

// memOffers: хранилище предложений в памяти с семантикой одного черновика на владельца.
type memOffers struct {
	mu       sync.Mutex
	offers   map[string]*model.SavedOffer
	seq      int
	getErr   error
	getCalls int
	now      time.Time
}

func newMemOffers() *memOffers {
	return &memOffers{
		offers: map[string]*model.SavedOffer{},
		now:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memOffers) tick() time.Time {
	m.now = m.now.Add(time.Second)
	return m.now
}

func (m *memOffers) put(ownerID int64, o model.Offer, isDraft bool) *model.SavedOffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	ts := m.tick()
	so := &model.SavedOffer{
		ID:        fmt.Sprintf("offer-%d", m.seq),
		OwnerID:   ownerID,
		Offer:     o,
		IsDraft:   isDraft,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	m.offers[so.ID] = so
	return so
}

func (m *memOffers) draftCount(ownerID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, so := range m.offers {
		if so.OwnerID == ownerID && so.IsDraft {
			n++
		}
	}
	return n
}

func (m *memOffers) latestDraftLocked(ownerID int64) *model.SavedOffer {
	var latest *model.SavedOffer
	for _, so := range m.offers {
		if so.OwnerID != ownerID || !so.IsDraft {
			continue
		}
		if latest == nil || so.CreatedAt.After(latest.CreatedAt) {
			latest = so
		}
	}
	return latest
}

func (m *memOffers) GetLatestDraft(_ context.Context, ownerID int64) (*model.SavedOffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	if so := m.latestDraftLocked(ownerID); so != nil {
		c := *so
		return &c, nil
	}
	return nil, nil
}

func (m *memOffers) UpsertDraft(_ context.Context, ownerID int64, _ string, o model.Offer) (*model.SavedOffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.IsDraft = true
	ts := m.tick()
	if so := m.latestDraftLocked(ownerID); so != nil {
		so.Offer = o
		so.UpdatedAt = ts
		c := *so
		return &c, nil
	}
	m.seq++
	so := &model.SavedOffer{ID: fmt.Sprintf("offer-%d", m.seq), OwnerID: ownerID, Offer: o, IsDraft: true, CreatedAt: ts, UpdatedAt: ts}
	m.offers[so.ID] = so
	c := *so
	return &c, nil
}

func (m *memOffers) Finalize(_ context.Context, draftID string) (*model.SavedOffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	so, ok := m.offers[draftID]
	if !ok {
		return nil, repository.ErrOfferNotFound
	}
	so.IsDraft = false
	so.Offer.IsDraft = false
	so.UpdatedAt = m.tick()
	c := *so
	return &c, nil
}

func (m *memOffers) Delete(_ context.Context, offerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.offers, offerID)
	return nil
}

func (m *memOffers) GetOffer(_ context.Context, ownerID int64, offerID string) (*model.SavedOffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	so, ok := m.offers[offerID]
	if !ok || so.OwnerID != ownerID {
		return nil, repository.ErrOfferNotFound
	}
	c := *so
	return &c, nil
}

func (m *memOffers) ListOffers(_ context.Context, ownerID int64) ([]model.SavedOffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.SavedOffer
	for _, so := range m.offers {
		if so.OwnerID == ownerID {
			res = append(res, *so)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

// memCatalog: справочники клиентов и товаров в памяти.
type memCatalog struct {
	clients  map[string]*model.SavedClient
	products map[string]*model.SavedProduct
	seq      int
	writes   int
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		clients:  map[string]*model.SavedClient{},
		products: map[string]*model.SavedProduct{},
	}
}

func (m *memCatalog) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memCatalog) ListClients(_ context.Context, ownerID int64) ([]model.SavedClient, error) {
	var res []model.SavedClient
	for _, c := range m.clients {
		if c.OwnerID == ownerID {
			res = append(res, *c)
		}
	}
	return res, nil
}

func (m *memCatalog) GetClient(_ context.Context, ownerID int64, clientID string) (*model.SavedClient, error) {
	c, ok := m.clients[clientID]
	if !ok || c.OwnerID != ownerID {
		return nil, repository.ErrClientNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCatalog) FindClientByVAT(_ context.Context, ownerID int64, vat string) (*model.SavedClient, error) {
	for _, c := range m.clients {
		if c.OwnerID == ownerID && c.Client.VATNumber == vat {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memCatalog) CreateClient(_ context.Context, ownerID int64, info model.ClientInfo) (*model.SavedClient, error) {
	m.writes++
	c := &model.SavedClient{ID: m.nextID("client"), OwnerID: ownerID, Client: info}
	m.clients[c.ID] = c
	cp := *c
	return &cp, nil
}

func (m *memCatalog) UpdateClient(_ context.Context, ownerID int64, clientID string, info model.ClientInfo) (*model.SavedClient, error) {
	m.writes++
	c, ok := m.clients[clientID]
	if !ok || c.OwnerID != ownerID {
		return nil, repository.ErrClientNotFound
	}
	c.Client = info
	cp := *c
	return &cp, nil
}

func (m *memCatalog) ListProducts(_ context.Context, ownerID int64) ([]model.SavedProduct, error) {
	var res []model.SavedProduct
	for _, p := range m.products {
		if p.OwnerID == ownerID {
			res = append(res, *p)
		}
	}
	return res, nil
}

func (m *memCatalog) GetProduct(_ context.Context, ownerID int64, productID string) (*model.SavedProduct, error) {
	p, ok := m.products[productID]
	if !ok || p.OwnerID != ownerID {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memCatalog) FindProductByPartNumber(_ context.Context, ownerID int64, part string) (*model.SavedProduct, error) {
	for _, p := range m.products {
		if p.OwnerID == ownerID && p.PartNumber == part {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memCatalog) CreateProduct(_ context.Context, ownerID int64, p model.SavedProduct) (*model.SavedProduct, error) {
	m.writes++
	p.ID = m.nextID("product")
	p.OwnerID = ownerID
	m.products[p.ID] = &p
	cp := p
	return &cp, nil
}

func (m *memCatalog) UpdateProduct(_ context.Context, ownerID int64, productID string, p model.SavedProduct) (*model.SavedProduct, error) {
	m.writes++
	existing, ok := m.products[productID]
	if !ok || existing.OwnerID != ownerID {
		return nil, repository.ErrProductNotFound
	}
	p.ID = productID
	p.OwnerID = ownerID
	m.products[productID] = &p
	cp := p
	return &cp, nil
}
