package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danielkolev/offersrv-sub002/internal/draftcache"
	"github.com/danielkolev/offersrv-sub002/internal/model"
	"github.com/danielkolev/offersrv-sub002/internal/offer"
)

var (
	// ErrNoDraft возвращается, если продолжать нечего.
	ErrNoDraft = errors.New("no draft to resume")
	// ErrDraftChanged возвращается, если найденный черновик не совпадает с ожидаемым кодом.
	ErrDraftChanged = errors.New("draft changed since it was checked")
)

const (
	// DefaultIdleTTL: через сколько простоя сессия выгружается из памяти.
	DefaultIdleTTL = 30 * time.Minute
	// DefaultTerminalTTL: то же для оформленных и отменённых сессий.
	DefaultTerminalTTL = time.Minute
)

// LocalDraftStore: локальный кэш черновика одного владельца.
type LocalDraftStore interface {
	Save(ctx context.Context, o model.Offer)
	Load(ctx context.Context) *model.Offer
	Clear(ctx context.Context)
}

// LocalStoreFactory возвращает локальный кэш черновика владельца.
type LocalStoreFactory func(ownerID int64) LocalDraftStore

// DraftCacheKey: ключ локального кэша черновика владельца.
func DraftCacheKey(ownerID int64) string {
	return fmt.Sprintf("offer-draft:%d", ownerID)
}

// NewLocalStores строит кэши черновиков поверх общего KV, по ключу на владельца.
func NewLocalStores(kv draftcache.KV, logger *zap.Logger) LocalStoreFactory {
	return func(ownerID int64) LocalDraftStore {
		return draftcache.NewStore(kv, DraftCacheKey(ownerID), logger)
	}
}

// SessionConfig: параметры новых сессий редактирования.
type SessionConfig struct {
	Debounce        time.Duration
	DefaultCurrency string
	DefaultLanguage string
	IdleTTL         time.Duration
	TerminalTTL     time.Duration
}

type session struct {
	ctrl     *offer.Controller
	lastUsed time.Time
}

// Sessions хранит по одному контроллеру предложения на владельца.
//
// Простаивающие сессии выгружаются при очередном Get: несохранённые изменения
// записываются в фоне, затем контроллер закрывается.
type Sessions struct {
	mu       sync.Mutex
	sessions map[int64]*session
	retiring sync.WaitGroup
	now      func() time.Time

	offers     OfferRepository
	reconciler *Reconciler
	locals     LocalStoreFactory
	cfg        SessionConfig
	baseCtx    context.Context
	logger     *zap.Logger
}

// NewSessions создаёт реестр сессий. baseCtx используется для отложенных записей.
func NewSessions(baseCtx context.Context, offers OfferRepository, reconciler *Reconciler, locals LocalStoreFactory, cfg SessionConfig, logger *zap.Logger) *Sessions {
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = model.DefaultCurrency
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = model.DefaultLanguage
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = offer.DefaultDebounce
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.TerminalTTL <= 0 {
		cfg.TerminalTTL = DefaultTerminalTTL
	}
	return &Sessions{
		sessions:   make(map[int64]*session),
		now:        time.Now,
		offers:     offers,
		reconciler: reconciler,
		locals:     locals,
		cfg:        cfg,
		baseCtx:    baseCtx,
		logger:     logger,
	}
}

// Get возвращает контроллер текущей сессии, создавая пустую сессию при необходимости.
func (s *Sessions) Get(id model.Identity) *offer.Controller {
	s.mu.Lock()
	now := s.now()
	evicted := s.sweepLocked(now, id.UserID)

	sess, ok := s.sessions[id.UserID]
	if !ok {
		sess = &session{ctrl: s.newController(id, nil, "")}
		s.sessions[id.UserID] = sess
	}
	sess.lastUsed = now
	s.mu.Unlock()

	for owner, c := range evicted {
		s.retire(owner, c)
	}
	return sess.ctrl
}

// sweepLocked убирает из реестра простаивающие сессии других владельцев.
// Оформленные и отменённые сессии живут TerminalTTL, остальные IdleTTL.
func (s *Sessions) sweepLocked(now time.Time, caller int64) map[int64]*offer.Controller {
	var evicted map[int64]*offer.Controller
	for owner, sess := range s.sessions {
		if owner == caller {
			continue
		}
		ttl := s.cfg.IdleTTL
		if sess.ctrl.State().Terminal() {
			ttl = s.cfg.TerminalTTL
		}
		if now.Sub(sess.lastUsed) < ttl {
			continue
		}
		if evicted == nil {
			evicted = make(map[int64]*offer.Controller)
		}
		evicted[owner] = sess.ctrl
		delete(s.sessions, owner)
	}
	return evicted
}

// retire в фоне сохраняет отложенные изменения выгруженной сессии и закрывает её.
func (s *Sessions) retire(owner int64, c *offer.Controller) {
	s.retiring.Add(1)
	go func() {
		defer s.retiring.Done()
		if err := c.Flush(s.baseCtx); err != nil {
			s.logger.Warn("flush idle session failed", zap.Int64("owner_id", owner), zap.Error(err))
		}
		c.Close()
		s.logger.Debug("idle session evicted", zap.Int64("owner_id", owner))
	}()
}

// Resume заменяет текущую сессию черновиком, выбранным Reconciler.
// Непустой draftCode должен совпадать с кодом найденного черновика, иначе ErrDraftChanged.
// Несохранённые изменения прежней сессии отбрасываются.
func (s *Sessions) Resume(ctx context.Context, id model.Identity, draftCode string) (offer.Snapshot, model.DraftSource, error) {
	cand, ok := s.reconciler.LoadDraft(ctx, id)
	if !ok {
		return offer.Snapshot{}, model.DraftSourceNone, ErrNoDraft
	}
	if draftCode != "" && cand.Offer.DraftCode != draftCode {
		return offer.Snapshot{}, cand.Source, ErrDraftChanged
	}

	c := s.newController(id, &cand.Offer, cand.DraftID)
	s.replace(id.UserID, c)

	s.logger.Info("draft resumed",
		zap.Int64("owner_id", id.UserID),
		zap.String("source", string(cand.Source)),
		zap.String("draft_code", cand.Offer.DraftCode),
	)
	return c.Snapshot(), cand.Source, nil
}

// StartNew отменяет текущий черновик, очищает оба хранилища и начинает пустую сессию.
func (s *Sessions) StartNew(ctx context.Context, id model.Identity) (offer.Snapshot, error) {
	s.mu.Lock()
	var current *offer.Controller
	if sess, ok := s.sessions[id.UserID]; ok {
		current = sess.ctrl
	}
	s.mu.Unlock()

	if current != nil {
		if _, err := current.Discard(ctx); err != nil && !errors.Is(err, offer.ErrFinalized) {
			return offer.Snapshot{}, fmt.Errorf("discard draft: %w", err)
		}
	}

	// Черновик мог остаться от прошлой сессии, которую не продолжили.
	if id.Authenticated && s.offers != nil {
		so, err := s.offers.GetLatestDraft(ctx, id.UserID)
		if err != nil {
			return offer.Snapshot{}, fmt.Errorf("get latest draft: %w", err)
		}
		if so != nil {
			if err := s.offers.Delete(ctx, so.ID); err != nil {
				return offer.Snapshot{}, fmt.Errorf("delete draft: %w", err)
			}
		}
	}
	if s.locals != nil {
		s.locals(id.UserID).Clear(ctx)
	}

	c := s.newController(id, nil, "")
	s.replace(id.UserID, c)
	return c.Snapshot(), nil
}

// FlushAll сохраняет отложенные изменения всех сессий, включая выгружаемые.
func (s *Sessions) FlushAll(ctx context.Context) error {
	s.retiring.Wait()

	s.mu.Lock()
	controllers := make(map[int64]*offer.Controller, len(s.sessions))
	for owner, sess := range s.sessions {
		controllers[owner] = sess.ctrl
	}
	s.mu.Unlock()

	var errs []error
	for owner, c := range controllers {
		if err := c.Flush(ctx); err != nil {
			s.logger.Error("flush draft failed", zap.Int64("owner_id", owner), zap.Error(err))
			errs = append(errs, fmt.Errorf("flush owner %d: %w", owner, err))
		}
		c.Close()
	}
	return errors.Join(errs...)
}

func (s *Sessions) replace(ownerID int64, c *offer.Controller) {
	s.mu.Lock()
	old := s.sessions[ownerID]
	s.sessions[ownerID] = &session{ctrl: c, lastUsed: s.now()}
	s.mu.Unlock()

	if old != nil {
		old.ctrl.Close()
	}
}

func (s *Sessions) newController(id model.Identity, initial *model.Offer, draftID string) *offer.Controller {
	opts := []offer.Option{
		offer.WithDebounce(s.cfg.Debounce),
		offer.WithLogger(s.logger.With(zap.Int64("owner_id", id.UserID))),
		offer.WithContext(s.baseCtx),
	}
	if id.Authenticated && s.offers != nil {
		opts = append(opts, offer.WithRemote(s.offers, id.UserID))
	}
	if s.locals != nil {
		opts = append(opts, offer.WithLocal(s.locals(id.UserID)))
	}

	if initial != nil {
		opts = append(opts, offer.WithInitial(*initial, draftID))
	} else {
		o := model.NewOffer()
		o.Details.Currency = s.cfg.DefaultCurrency
		o.Details.Language = s.cfg.DefaultLanguage
		opts = append(opts, offer.WithInitial(o, ""))
	}

	return offer.New(opts...)
}
