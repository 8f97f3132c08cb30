// Package service реализует бизнес-логику сервиса коммерческих предложений:
// пользователей, выбор черновика при старте сессии, сессии редактирования и импорт
// данных из справочников.
package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/danielkolev/offersrv-sub002/internal/model"
	"github.com/danielkolev/offersrv-sub002/internal/repository"
)

// ErrInvalidCredentials возвращается при неверном логине или пароле.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository: хранилище пользователей.
type UserRepository interface {
	CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
}

// OfferRepository: удалённое хранилище предложений и черновиков.
type OfferRepository interface {
	GetLatestDraft(ctx context.Context, ownerID int64) (*model.SavedOffer, error)
	UpsertDraft(ctx context.Context, ownerID int64, draftID string, o model.Offer) (*model.SavedOffer, error)
	Finalize(ctx context.Context, draftID string) (*model.SavedOffer, error)
	Delete(ctx context.Context, offerID string) error
	GetOffer(ctx context.Context, ownerID int64, offerID string) (*model.SavedOffer, error)
	ListOffers(ctx context.Context, ownerID int64) ([]model.SavedOffer, error)
}

// CatalogRepository: справочники клиентов и товаров.
type CatalogRepository interface {
	ListClients(ctx context.Context, ownerID int64) ([]model.SavedClient, error)
	GetClient(ctx context.Context, ownerID int64, clientID string) (*model.SavedClient, error)
	FindClientByVAT(ctx context.Context, ownerID int64, vatNumber string) (*model.SavedClient, error)
	CreateClient(ctx context.Context, ownerID int64, info model.ClientInfo) (*model.SavedClient, error)
	UpdateClient(ctx context.Context, ownerID int64, clientID string, info model.ClientInfo) (*model.SavedClient, error)
	ListProducts(ctx context.Context, ownerID int64) ([]model.SavedProduct, error)
	GetProduct(ctx context.Context, ownerID int64, productID string) (*model.SavedProduct, error)
	FindProductByPartNumber(ctx context.Context, ownerID int64, partNumber string) (*model.SavedProduct, error)
	CreateProduct(ctx context.Context, ownerID int64, p model.SavedProduct) (*model.SavedProduct, error)
	UpdateProduct(ctx context.Context, ownerID int64, productID string, p model.SavedProduct) (*model.SavedProduct, error)
}

// Service содержит операции над пользователями, сохранёнными предложениями и справочниками.
type Service struct {
	users   UserRepository
	offers  OfferRepository
	catalog CatalogRepository
}

// NewService создаёт новый сервис.
func NewService(users UserRepository, offers OfferRepository, catalog CatalogRepository) *Service {
	return &Service{
		users:   users,
		offers:  offers,
		catalog: catalog,
	}
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	hashed := hashPassword(login, password)
	id, err := s.users.CreateUser(ctx, login, hashed)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return 0, repository.ErrUserExists
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// AuthenticateUser проверяет логин и пароль пользователя и возвращает его идентификатор.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (int64, error) {
	u, err := s.users.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return 0, ErrInvalidCredentials
		}
		return 0, fmt.Errorf("get user: %w", err)
	}

	hashed := hashPassword(login, password)
	if subtle.ConstantTimeCompare(hashed, u.PasswordHash) != 1 {
		return 0, ErrInvalidCredentials
	}

	return u.ID, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// ListOffers возвращает сохранённые предложения и черновик пользователя.
func (s *Service) ListOffers(ctx context.Context, ownerID int64) ([]model.SavedOffer, error) {
	return s.offers.ListOffers(ctx, ownerID)
}

// GetOffer возвращает предложение пользователя.
func (s *Service) GetOffer(ctx context.Context, ownerID int64, offerID string) (*model.SavedOffer, error) {
	return s.offers.GetOffer(ctx, ownerID, offerID)
}

// DeleteOffer удаляет предложение пользователя. Отсутствующее или чужое
// предложение не удаляется, и это не ошибка.
func (s *Service) DeleteOffer(ctx context.Context, ownerID int64, offerID string) error {
	if _, err := s.offers.GetOffer(ctx, ownerID, offerID); err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			return nil
		}
		return err
	}
	return s.offers.Delete(ctx, offerID)
}

// ListClients возвращает справочник клиентов пользователя.
func (s *Service) ListClients(ctx context.Context, ownerID int64) ([]model.SavedClient, error) {
	return s.catalog.ListClients(ctx, ownerID)
}

// ListProducts возвращает каталог товаров пользователя.
func (s *Service) ListProducts(ctx context.Context, ownerID int64) ([]model.SavedProduct, error) {
	return s.catalog.ListProducts(ctx, ownerID)
}
