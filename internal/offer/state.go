package offer

// State: состояние сессии редактирования.
type State int

const (
	// StateEmpty: в предложении ещё нет значимых данных.
	StateEmpty State = iota
	// StateDrafting: черновик с данными, сохраняется автоматически.
	StateDrafting
	// StateFinalized: предложение оформлено. Состояние конечное.
	StateFinalized
	// StateDiscarded: черновик отменён. Состояние конечное.
	StateDiscarded
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateDrafting:
		return "drafting"
	case StateFinalized:
		return "finalized"
	case StateDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// MarshalText кодирует состояние строкой.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal сообщает, завершена ли сессия.
func (s State) Terminal() bool {
	return s == StateFinalized || s == StateDiscarded
}
