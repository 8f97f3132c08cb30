package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/danielkolev/offersrv-sub002/internal/offer"
)

type importProductRequest struct {
	Quantity float64 `json:"quantity" validate:"gte=0"`
}

// ListOffers возвращает сохранённые предложения пользователя.
func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	offers, err := h.service.ListOffers(r.Context(), id.UserID)
	if err != nil {
		h.writeError(w, "list offers", id, err)
		return
	}

	if len(offers) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, offers)
}

// GetSavedOffer возвращает сохранённое предложение по идентификатору.
func (h *Handler) GetSavedOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	so, err := h.service.GetOffer(r.Context(), id.UserID, chi.URLParam(r, "offerID"))
	if err != nil {
		h.writeError(w, "get offer", id, err)
		return
	}
	writeJSON(w, http.StatusOK, so)
}

// DeleteOffer удаляет сохранённое предложение. Повторное удаление не считается ошибкой.
func (h *Handler) DeleteOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteOffer(r.Context(), id.UserID, chi.URLParam(r, "offerID")); err != nil {
		h.writeError(w, "delete offer", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListClients возвращает справочник клиентов пользователя.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	clients, err := h.service.ListClients(r.Context(), id.UserID)
	if err != nil {
		h.writeError(w, "list clients", id, err)
		return
	}

	if len(clients) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

// SaveClientFromOffer сохраняет клиента текущего предложения в справочник.
func (h *Handler) SaveClientFromOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	info := h.sessions.Get(id).Snapshot().Offer.Client
	saved, created, err := h.importer.SaveClientFromOffer(r.Context(), id.UserID, info)
	if err != nil {
		h.writeError(w, "save client", id, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, saved)
}

// ImportClient подставляет клиента из справочника в текущее предложение.
func (h *Handler) ImportClient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	snap, err := h.importer.ImportClient(r.Context(), h.sessions.Get(id), id.UserID, chi.URLParam(r, "clientID"))
	if err != nil {
		h.writeError(w, "import client", id, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ListProducts возвращает каталог товаров пользователя.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	products, err := h.service.ListProducts(r.Context(), id.UserID)
	if err != nil {
		h.writeError(w, "list products", id, err)
		return
	}

	if len(products) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// SaveProductFromOffer сохраняет строку текущего предложения в каталог.
func (h *Handler) SaveProductFromOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	lineID := chi.URLParam(r, "lineID")
	snap := h.sessions.Get(id).Snapshot()

	for _, p := range snap.Offer.Products {
		if p.ID != lineID {
			continue
		}
		saved, created, err := h.importer.SaveProductFromOffer(r.Context(), id.UserID, p)
		if err != nil {
			h.writeError(w, "save product", id, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, saved)
		return
	}

	h.logger.Debug("product line not found", zap.String("lineID", lineID))
	h.writeError(w, "save product", id, offer.ErrProductNotFound)
}

// ImportProduct добавляет товар из каталога строкой в текущее предложение.
func (h *Handler) ImportProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req importProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	snap, err := h.importer.ImportProduct(r.Context(), h.sessions.Get(id), id.UserID, chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		h.writeError(w, "import product", id, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
