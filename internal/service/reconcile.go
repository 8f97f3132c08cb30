package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/danielkolev/offersrv-sub002/internal/model"
)

// DraftReader: часть удалённого хранилища, нужная для поиска черновика.
type DraftReader interface {
	GetLatestDraft(ctx context.Context, ownerID int64) (*model.SavedOffer, error)
}

// Reconciler решает, есть ли черновик для продолжения и какому хранилищу верить.
// Удалённое хранилище главное; локальный кэш используется, только если удалённое
// недоступно или черновика в нём нет. Кандидаты никогда не объединяются.
type Reconciler struct {
	remote DraftReader
	locals LocalStoreFactory
	logger *zap.Logger
}

// NewReconciler создаёт Reconciler.
func NewReconciler(remote DraftReader, locals LocalStoreFactory, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		remote: remote,
		locals: locals,
		logger: logger,
	}
}

// CheckForDraft сообщает, есть ли черновик для продолжения и откуда он.
// Только читает хранилища, повторный вызов безопасен.
func (r *Reconciler) CheckForDraft(ctx context.Context, id model.Identity) model.DraftCheck {
	cand, remoteErr := r.resolve(ctx, id)
	return model.DraftCheck{
		Exists:    cand.Source != model.DraftSourceNone,
		Source:    cand.Source,
		DraftCode: cand.Offer.DraftCode,
		RemoteErr: remoteErr,
	}
}

// LoadDraft возвращает выбранный черновик для передачи контроллеру.
func (r *Reconciler) LoadDraft(ctx context.Context, id model.Identity) (model.DraftCandidate, bool) {
	cand, _ := r.resolve(ctx, id)
	return cand, cand.Source != model.DraftSourceNone
}

func (r *Reconciler) resolve(ctx context.Context, id model.Identity) (model.DraftCandidate, error) {
	var remoteErr error

	// Без аутентификации удалённое хранилище считается недоступным.
	if id.Authenticated && r.remote != nil {
		so, err := r.remote.GetLatestDraft(ctx, id.UserID)
		switch {
		case err != nil:
			remoteErr = err
			r.logger.Warn("remote draft lookup failed, falling back to local cache",
				zap.Int64("owner_id", id.UserID),
				zap.Error(err),
			)
		case so != nil && so.IsDraft && so.Offer.IsMeaningful():
			o := so.Offer.Clone()
			o.IsDraft = true
			return model.DraftCandidate{Offer: o, Source: model.DraftSourceRemote, DraftID: so.ID}, nil
		}
	}

	if r.locals != nil {
		if local := r.locals(id.UserID).Load(ctx); local != nil && local.IsDraft && local.IsMeaningful() {
			return model.DraftCandidate{Offer: *local, Source: model.DraftSourceLocal}, remoteErr
		}
	}

	return model.DraftCandidate{Source: model.DraftSourceNone}, remoteErr
}
