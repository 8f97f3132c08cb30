package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/danielkolev/offersrv-sub002/internal/model"
	"github.com/danielkolev/offersrv-sub002/internal/offer"
)

// keepAliveInterval: период комментариев-пингов в потоке событий.
var keepAliveInterval = 15 * time.Second

type draftCheckResponse struct {
	model.DraftCheck
	RemoteError string `json:"remoteError,omitempty"`
}

type resumeRequest struct {
	DraftCode string `json:"draftCode" validate:"omitempty,draftcode"`
}

type resumeResponse struct {
	Source   model.DraftSource `json:"source"`
	Snapshot offer.Snapshot    `json:"snapshot"`
}

type productRequest struct {
	ID          string  `json:"id" validate:"omitempty,max=64"`
	Name        string  `json:"name" validate:"max=500"`
	PartNumber  string  `json:"partNumber" validate:"max=100"`
	Description string  `json:"description" validate:"max=4000"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

// CheckDraft сообщает, есть ли черновик для продолжения.
func (h *Handler) CheckDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	check := h.drafts.CheckForDraft(r.Context(), id)
	resp := draftCheckResponse{DraftCheck: check}
	if check.RemoteErr != nil {
		resp.RemoteError = check.RemoteErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// ResumeDraft открывает найденный черновик в новой сессии редактирования.
// Необязательный draftCode подтверждает, что продолжается тот черновик,
// который клиент получил из CheckDraft.
func (h *Handler) ResumeDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req resumeRequest
	if !h.decode(w, r, &req) {
		return
	}

	snap, source, err := h.sessions.Resume(r.Context(), id, req.DraftCode)
	if err != nil {
		h.writeError(w, "resume draft", id, err)
		return
	}
	writeJSON(w, http.StatusOK, resumeResponse{Source: source, Snapshot: snap})
}

// GetOffer возвращает текущее состояние редактируемого предложения.
func (h *Handler) GetOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.sessions.Get(id).Snapshot())
}

// Events передаёт снимки предложения потоком server-sent events.
// Поток завершается, когда сессия заменена, черновик отменён или сервер останавливается.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctrl := h.sessions.Get(id)
	updates := make(chan offer.Snapshot, 16)
	cancel := ctrl.Subscribe(func(s offer.Snapshot) {
		select {
		case updates <- s:
		default:
		}
	})
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, ctrl.Snapshot()); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.streamsDone:
			return
		case snap := <-updates:
			if err := writeEvent(w, snap); err != nil {
				h.logger.Debug("event stream closed", zap.Error(err))
				return
			}
			flusher.Flush()
			if snap.State == offer.StateDiscarded {
				return
			}
		case <-ticker.C:
			if h.sessions.Get(id) != ctrl {
				return
			}
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, snap offer.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
	return err
}

// UpdateClient частично обновляет данные клиента.
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	var m offer.UpdateClient
	h.mutate(w, r, "update client", &m, func() offer.Mutation { return m })
}

// UpdateDetails частично обновляет реквизиты предложения.
func (h *Handler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	var m offer.UpdateDetails
	h.mutate(w, r, "update details", &m, func() offer.Mutation { return m })
}

// AddProduct добавляет строку в предложение.
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	h.mutate(w, r, "add product", &req, func() offer.Mutation {
		return offer.AddProduct{Product: model.Product(req)}
	})
}

// UpdateProduct частично обновляет строку предложения.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var m offer.UpdateProduct
	h.mutate(w, r, "update product", &m, func() offer.Mutation {
		m.ID = chi.URLParam(r, "lineID")
		return m
	})
}

// RemoveProduct удаляет строку предложения.
func (h *Handler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "remove product", nil, func() offer.Mutation {
		return offer.RemoveProduct{ID: chi.URLParam(r, "lineID")}
	})
}

// ReorderProducts задаёт новый порядок строк.
func (h *Handler) ReorderProducts(w http.ResponseWriter, r *http.Request) {
	var m offer.ReorderProducts
	h.mutate(w, r, "reorder products", &m, func() offer.Mutation { return m })
}

// mutate читает тело в req (если задано) и применяет мутацию к сессии пользователя.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op string, req any, build func() offer.Mutation) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	if req != nil && !h.decode(w, r, req) {
		return
	}

	snap, err := h.sessions.Get(id).Apply(r.Context(), build())
	if err != nil {
		h.writeError(w, op, id, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// SaveOffer немедленно сохраняет черновик в удалённое хранилище.
func (h *Handler) SaveOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	snap, err := h.sessions.Get(id).Save(r.Context())
	if err != nil {
		h.writeError(w, "save offer", id, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// FinalizeOffer оформляет черновик как готовое предложение.
func (h *Handler) FinalizeOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	snap, err := h.sessions.Get(id).Finalize(r.Context())
	if err != nil {
		h.writeError(w, "finalize offer", id, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// NewOffer отменяет текущий черновик и начинает пустое предложение.
func (h *Handler) NewOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	snap, err := h.sessions.StartNew(r.Context(), id)
	if err != nil {
		h.writeError(w, "new offer", id, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
