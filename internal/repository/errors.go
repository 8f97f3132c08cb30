package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrUserExists возвращается при попытке создать пользователя с уже существующим логином.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrOfferNotFound возвращается, если предложение не найдено.
	ErrOfferNotFound = errors.New("offer not found")
	// ErrClientNotFound возвращается, если клиент не найден в справочнике.
	ErrClientNotFound = errors.New("client not found")
	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
)

// StoreError: ошибка удалённого хранилища (сеть, сервер, сериализация).
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// IsStoreError сообщает, вызвана ли ошибка сбоем хранилища.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
