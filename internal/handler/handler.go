// Package handler содержит HTTP-обработчики API сервиса коммерческих предложений.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/danielkolev/offersrv-sub002/internal/middleware"
	"github.com/danielkolev/offersrv-sub002/internal/model"
	"github.com/danielkolev/offersrv-sub002/internal/offer"
	"github.com/danielkolev/offersrv-sub002/internal/repository"
	"github.com/danielkolev/offersrv-sub002/internal/service"
	"github.com/danielkolev/offersrv-sub002/internal/validation"
)

// Service определяет операции над пользователями, сохранёнными предложениями и справочниками.
type Service interface {
	RegisterUser(ctx context.Context, login, password string) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (int64, error)
	ListOffers(ctx context.Context, ownerID int64) ([]model.SavedOffer, error)
	GetOffer(ctx context.Context, ownerID int64, offerID string) (*model.SavedOffer, error)
	DeleteOffer(ctx context.Context, ownerID int64, offerID string) error
	ListClients(ctx context.Context, ownerID int64) ([]model.SavedClient, error)
	ListProducts(ctx context.Context, ownerID int64) ([]model.SavedProduct, error)
}

// Drafts проверяет наличие черновика для продолжения.
type Drafts interface {
	CheckForDraft(ctx context.Context, id model.Identity) model.DraftCheck
}

// Sessions управляет сессиями редактирования.
type Sessions interface {
	Get(id model.Identity) *offer.Controller
	Resume(ctx context.Context, id model.Identity, draftCode string) (offer.Snapshot, model.DraftSource, error)
	StartNew(ctx context.Context, id model.Identity) (offer.Snapshot, error)
}

// Importer переносит записи справочников в предложение и обратно.
type Importer interface {
	ImportClient(ctx context.Context, ctrl service.OfferEditor, ownerID int64, clientID string) (offer.Snapshot, error)
	ImportProduct(ctx context.Context, ctrl service.OfferEditor, ownerID int64, productID string, quantity float64) (offer.Snapshot, error)
	SaveClientFromOffer(ctx context.Context, ownerID int64, info model.ClientInfo) (model.SavedClient, bool, error)
	SaveProductFromOffer(ctx context.Context, ownerID int64, p model.Product) (model.SavedProduct, bool, error)
}

// Handler реализует HTTP-обработчики API.
type Handler struct {
	service        Service
	drafts         Drafts
	sessions       Sessions
	importer       Importer
	validate       *validator.Validate
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware

	// streamsDone закрывается при остановке сервера и завершает потоки событий.
	streamsDone  chan struct{}
	closeStreams sync.Once
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, drafts Drafts, sessions Sessions, importer Importer, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		drafts:         drafts,
		sessions:       sessions,
		importer:       importer,
		validate:       validation.New(),
		logger:         logger,
		authMiddleware: auth,
		streamsDone:    make(chan struct{}),
	}
}

// CloseStreams завершает все открытые потоки событий. Повторный вызов ничего не делает.
// Предназначен для http.Server.RegisterOnShutdown.
func (h *Handler) CloseStreams() {
	h.closeStreams.Do(func() { close(h.streamsDone) })
}

type credentialsRequest struct {
	Login    string `json:"login" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=256"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию пользователя и устанавливает cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	userID, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

// Logout удаляет cookie авторизации.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusOK)
}

// identity возвращает пользователя запроса или отвечает 401.
func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (model.Identity, bool) {
	id := middleware.IdentityFromContext(r.Context())
	if !id.Authenticated {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return model.Identity{}, false
	}
	return id, true
}

// decode читает JSON-тело и проверяет его правилами validate. Пустое тело допустимо,
// если структура проходит проверку со значениями по умолчанию.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body != nil && r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return false
		}
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			http.Error(w, verrs.Error(), http.StatusUnprocessableEntity)
			return false
		}
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError переводит ошибку в HTTP-статус. Неизвестные ошибки журналируются.
func (h *Handler) writeError(w http.ResponseWriter, op string, id model.Identity, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, offer.ErrFinalized), errors.Is(err, offer.ErrDiscarded),
		errors.Is(err, offer.ErrFinalizing), errors.Is(err, service.ErrDraftChanged):
		status = http.StatusConflict
	case errors.Is(err, offer.ErrProductNotFound),
		errors.Is(err, repository.ErrOfferNotFound),
		errors.Is(err, repository.ErrClientNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, service.ErrNoDraft):
		status = http.StatusNotFound
	case errors.Is(err, offer.ErrInvalidAmount),
		errors.Is(err, offer.ErrInvalidVATRate),
		errors.Is(err, offer.ErrInvalidOrder),
		errors.Is(err, offer.ErrDuplicateProduct),
		errors.Is(err, offer.ErrEmptyOffer),
		errors.Is(err, service.ErrNoClientName),
		errors.Is(err, service.ErrNoProductName):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, offer.ErrRemoteUnavailable), repository.IsStoreError(err):
		status = http.StatusBadGateway
		h.logger.Warn(op+" store error", zap.Error(err), zap.Int64("userID", id.UserID))
	default:
		h.logger.Error(op+" error", zap.Error(err), zap.Int64("userID", id.UserID))
	}

	if status == http.StatusInternalServerError {
		http.Error(w, http.StatusText(status), status)
		return
	}
	http.Error(w, err.Error(), status)
}
