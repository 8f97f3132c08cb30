// Package offer содержит контроллер редактируемого предложения: мутации,
// пересчёт итогов и сохранение черновика в локальный кэш и удалённое хранилище.
package offer

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danielkolev/offersrv-sub002/internal/model"
	"github.com/danielkolev/offersrv-sub002/internal/totals"
)

var (
	// ErrFinalized возвращается при изменении уже оформленного предложения.
	ErrFinalized = errors.New("offer is finalized")
	// ErrDiscarded возвращается при изменении отменённого черновика.
	ErrDiscarded = errors.New("offer is discarded")
	// ErrFinalizing возвращается при изменении предложения, которое сейчас оформляется.
	ErrFinalizing = errors.New("offer is being finalized")
	// ErrEmptyOffer возвращается при сохранении предложения без значимых данных.
	ErrEmptyOffer = errors.New("offer has no meaningful content")
	// ErrRemoteUnavailable возвращается, если удалённое хранилище не подключено.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	// ErrProductNotFound возвращается, если строки с таким ID нет в предложении.
	ErrProductNotFound = errors.New("product line not found")
	// ErrDuplicateProduct возвращается при добавлении строки с уже существующим ID.
	ErrDuplicateProduct = errors.New("product line already exists")
	// ErrInvalidOrder возвращается, если новый порядок не является перестановкой строк.
	ErrInvalidOrder = errors.New("order must list every product line exactly once")
	// ErrInvalidAmount возвращается для отрицательных и нечисловых количеств и сумм.
	ErrInvalidAmount = errors.New("amount must be a finite non-negative number")
	// ErrInvalidVATRate возвращается для ставки НДС вне диапазона 0–100.
	ErrInvalidVATRate = errors.New("vat rate must be between 0 and 100")
)

// DefaultDebounce: окно отложенной записи в удалённое хранилище по умолчанию.
const DefaultDebounce = 2 * time.Second

// DraftRepository: удалённое хранилище черновиков.
// draftID в UpsertDraft: уже известный идентификатор черновика, пустой для первой записи.
type DraftRepository interface {
	UpsertDraft(ctx context.Context, ownerID int64, draftID string, o model.Offer) (*model.SavedOffer, error)
	Finalize(ctx context.Context, draftID string) (*model.SavedOffer, error)
	Delete(ctx context.Context, offerID string) error
}

// LocalStore: локальный кэш черновика. Ошибки обрабатывает сама реализация.
type LocalStore interface {
	Save(ctx context.Context, o model.Offer)
	Clear(ctx context.Context)
}

// Snapshot: согласованное состояние контроллера на момент чтения.
type Snapshot struct {
	Offer     model.Offer           `json:"offer"`
	Totals    model.Totals          `json:"totals"`
	Formatted model.FormattedTotals `json:"formatted"`
	State     State                 `json:"state"`
	Version   uint64                `json:"version"`
	DraftID   string                `json:"draftId,omitempty"`
}

// Controller владеет предложением на время сессии редактирования.
//
// Состояние защищено mu. Записи в удалённое хранилище выполняются под writeMu
// строго по очереди и всегда отправляют самую свежую версию.
type Controller struct {
	mu      sync.Mutex
	writeMu sync.Mutex

	offer      model.Offer
	totals     model.Totals
	state      State
	// finalizing: идёт оформление, мутации отклоняются.
	finalizing bool
	version    uint64
	persisted  uint64
	draftID    string

	remote   DraftRepository
	ownerID  int64
	local    LocalStore
	debounce time.Duration
	timer    *time.Timer
	baseCtx  context.Context
	logger   *zap.Logger

	subs   map[int]func(Snapshot)
	nextID int
}

// Option настраивает Controller.
type Option func(*Controller)

// WithRemote подключает удалённое хранилище черновиков владельца.
func WithRemote(repo DraftRepository, ownerID int64) Option {
	return func(c *Controller) {
		c.remote = repo
		c.ownerID = ownerID
	}
}

// WithLocal подключает локальный кэш черновика.
func WithLocal(store LocalStore) Option {
	return func(c *Controller) { c.local = store }
}

// WithDebounce задаёт окно отложенной записи.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = d }
}

// WithLogger задаёт логгер.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithContext задаёт контекст для отложенных записей.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) { c.baseCtx = ctx }
}

// WithInitial начинает сессию с восстановленного черновика.
// draftID: идентификатор удалённой записи, пустой для локального черновика.
func WithInitial(o model.Offer, draftID string) Option {
	return func(c *Controller) {
		c.offer = o.Clone()
		c.draftID = draftID
	}
}

// New создаёт контроллер. Без WithInitial сессия начинается с пустого предложения.
func New(opts ...Option) *Controller {
	c := &Controller{
		offer:    model.NewOffer(),
		debounce: DefaultDebounce,
		baseCtx:  context.Background(),
		logger:   zap.NewNop(),
		subs:     make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.offer.IsDraft = true
	c.state = StateEmpty
	if c.offer.IsMeaningful() {
		c.enterDraftingLocked()
	}
	c.recomputeLocked()
	return c
}

// Snapshot возвращает текущее состояние.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// State возвращает текущее состояние сессии.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe регистрирует получателя снимков. fn вызывается после каждого изменения
// вне блокировок контроллера и не должен блокироваться надолго.
func (c *Controller) Subscribe(fn func(Snapshot)) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Apply применяет мутацию: пересчитывает итоги, пишет локальный кэш
// и планирует отложенную запись в удалённое хранилище.
func (c *Controller) Apply(ctx context.Context, m Mutation) (Snapshot, error) {
	c.mu.Lock()
	if err := c.terminalErrLocked(); err != nil {
		c.mu.Unlock()
		return Snapshot{}, err
	}

	next := c.offer.Clone()
	if err := m.apply(&next); err != nil {
		c.mu.Unlock()
		return Snapshot{}, err
	}

	c.offer = next
	c.version++
	if c.state == StateEmpty && c.offer.IsMeaningful() {
		c.enterDraftingLocked()
	}
	c.recomputeLocked()

	if c.local != nil {
		c.local.Save(ctx, c.offer)
	}
	c.scheduleLocked()

	snap, subs := c.snapshotLocked(), c.subscribersLocked()
	c.mu.Unlock()

	notify(subs, snap)
	return snap, nil
}

// UpdateClientInfo частично обновляет данные клиента.
func (c *Controller) UpdateClientInfo(ctx context.Context, m UpdateClient) (Snapshot, error) {
	return c.Apply(ctx, m)
}

// UpdateOfferDetails частично обновляет реквизиты.
func (c *Controller) UpdateOfferDetails(ctx context.Context, m UpdateDetails) (Snapshot, error) {
	return c.Apply(ctx, m)
}

// AddProduct добавляет строку.
func (c *Controller) AddProduct(ctx context.Context, p model.Product) (Snapshot, error) {
	return c.Apply(ctx, AddProduct{Product: p})
}

// UpdateProduct частично обновляет строку.
func (c *Controller) UpdateProduct(ctx context.Context, m UpdateProduct) (Snapshot, error) {
	return c.Apply(ctx, m)
}

// RemoveProduct удаляет строку.
func (c *Controller) RemoveProduct(ctx context.Context, id string) (Snapshot, error) {
	return c.Apply(ctx, RemoveProduct{ID: id})
}

// ReorderProducts меняет порядок строк.
func (c *Controller) ReorderProducts(ctx context.Context, ids []string) (Snapshot, error) {
	return c.Apply(ctx, ReorderProducts{IDs: ids})
}

// Save немедленно сохраняет черновик в удалённое хранилище.
func (c *Controller) Save(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	c.stopTimerLocked()
	c.mu.Unlock()

	return c.persist(ctx)
}

// Flush выполняет отложенную запись, если есть несохранённые изменения.
// Пустое предложение не сохраняется и ошибкой не считается.
func (c *Controller) Flush(ctx context.Context) error {
	c.mu.Lock()
	c.stopTimerLocked()
	pending := c.remote != nil && c.state == StateDrafting && c.version > c.persisted
	c.mu.Unlock()

	if !pending {
		return nil
	}
	_, err := c.persist(ctx)
	if errors.Is(err, ErrEmptyOffer) {
		return nil
	}
	return err
}

// Finalize сохраняет последнюю версию и переводит черновик в оформленное предложение.
// Пока идёт оформление, мутации отклоняются с ErrFinalizing.
// При ошибке хранилища состояние контроллера не меняется.
func (c *Controller) Finalize(ctx context.Context) (Snapshot, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	if err := c.terminalErrLocked(); err != nil {
		c.mu.Unlock()
		return Snapshot{}, err
	}
	if c.remote == nil {
		c.mu.Unlock()
		return Snapshot{}, ErrRemoteUnavailable
	}
	c.stopTimerLocked()
	c.finalizing = true
	o, version, draftID := c.offer.Clone(), c.version, c.draftID
	upToDate := draftID != "" && version <= c.persisted
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.finalizing = false
		c.mu.Unlock()
	}()

	if !o.IsMeaningful() {
		return Snapshot{}, ErrEmptyOffer
	}

	if !upToDate {
		saved, err := c.remote.UpsertDraft(ctx, c.ownerID, draftID, o)
		if err != nil {
			return Snapshot{}, err
		}
		c.recordWrite(saved, version)
		draftID = saved.ID
	}

	final, err := c.remote.Finalize(ctx, draftID)
	if err != nil {
		return Snapshot{}, err
	}

	c.mu.Lock()
	c.offer.IsDraft = false
	c.setSavedTimesLocked(final)
	c.draftID = final.ID
	c.state = StateFinalized
	if c.local != nil {
		c.local.Clear(ctx)
	}
	snap, subs := c.snapshotLocked(), c.subscribersLocked()
	c.mu.Unlock()

	notify(subs, snap)
	return snap, nil
}

// Discard отменяет черновик: удаляет удалённую запись и очищает локальный кэш.
func (c *Controller) Discard(ctx context.Context) (Snapshot, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	switch c.state {
	case StateFinalized:
		c.mu.Unlock()
		return Snapshot{}, ErrFinalized
	case StateDiscarded:
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, nil
	}
	c.stopTimerLocked()
	draftID := c.draftID
	c.mu.Unlock()

	if draftID != "" && c.remote != nil {
		if err := c.remote.Delete(ctx, draftID); err != nil {
			return Snapshot{}, err
		}
	}

	c.mu.Lock()
	c.state = StateDiscarded
	c.draftID = ""
	if c.local != nil {
		c.local.Clear(ctx)
	}
	snap, subs := c.snapshotLocked(), c.subscribersLocked()
	c.mu.Unlock()

	notify(subs, snap)
	return snap, nil
}

// Close останавливает таймер отложенной записи без сохранения.
func (c *Controller) Close() {
	c.mu.Lock()
	c.stopTimerLocked()
	c.mu.Unlock()
}

// persist отправляет самую свежую версию в удалённое хранилище.
// Если эта версия уже сохранена, запись пропускается.
func (c *Controller) persist(ctx context.Context) (Snapshot, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	if err := c.terminalErrLocked(); err != nil {
		c.mu.Unlock()
		return Snapshot{}, err
	}
	if c.remote == nil {
		c.mu.Unlock()
		return Snapshot{}, ErrRemoteUnavailable
	}
	if c.draftID != "" && c.version <= c.persisted {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, nil
	}
	o, version, draftID := c.offer.Clone(), c.version, c.draftID
	c.mu.Unlock()

	if !o.IsMeaningful() {
		return Snapshot{}, ErrEmptyOffer
	}

	saved, err := c.remote.UpsertDraft(ctx, c.ownerID, draftID, o)
	if err != nil {
		return Snapshot{}, err
	}

	snap, subs := c.recordWrite(saved, version)
	notify(subs, snap)
	return snap, nil
}

// recordWrite фиксирует результат записи. Содержимое предложения из ответа
// не берётся: в памяти могут быть более новые изменения.
func (c *Controller) recordWrite(saved *model.SavedOffer, version uint64) (Snapshot, []func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.draftID = saved.ID
	c.setSavedTimesLocked(saved)
	if version > c.persisted {
		c.persisted = version
	}
	if c.local != nil {
		c.local.Save(c.baseCtx, c.offer)
	}
	return c.snapshotLocked(), c.subscribersLocked()
}

func (c *Controller) setSavedTimesLocked(saved *model.SavedOffer) {
	if c.offer.CreatedAt == nil && !saved.CreatedAt.IsZero() {
		t := saved.CreatedAt
		c.offer.CreatedAt = &t
	}
	t := saved.UpdatedAt
	if t.IsZero() {
		t = time.Now().UTC()
	}
	c.offer.LastSaved = &t
}

func (c *Controller) scheduleLocked() {
	if c.remote == nil || c.state != StateDrafting {
		return
	}
	c.stopTimerLocked()
	c.timer = time.AfterFunc(c.debounce, c.debouncedSave)
}

func (c *Controller) debouncedSave() {
	if _, err := c.persist(c.baseCtx); err != nil &&
		!errors.Is(err, ErrEmptyOffer) && !errors.Is(err, ErrFinalized) &&
		!errors.Is(err, ErrDiscarded) && !errors.Is(err, ErrFinalizing) {
		c.logger.Warn("debounced draft save failed",
			zap.Int64("owner_id", c.ownerID),
			zap.Error(err),
		)
	}
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) enterDraftingLocked() {
	c.state = StateDrafting
	if c.offer.DraftCode == "" {
		c.offer.DraftCode = NewDraftCode()
	}
}

func (c *Controller) recomputeLocked() {
	c.totals = totals.Compute(c.offer.Products, c.offer.Details)
}

func (c *Controller) terminalErrLocked() error {
	switch c.state {
	case StateFinalized:
		return ErrFinalized
	case StateDiscarded:
		return ErrDiscarded
	}
	if c.finalizing {
		return ErrFinalizing
	}
	return nil
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Offer:     c.offer.Clone(),
		Totals:    c.totals,
		Formatted: totals.FormatTotals(c.totals, c.offer.Details.Language, c.offer.Details.Currency),
		State:     c.state,
		Version:   c.version,
		DraftID:   c.draftID,
	}
}

func (c *Controller) subscribersLocked() []func(Snapshot) {
	subs := make([]func(Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
