package usecase

import (
	"errors"
	"fmt"

	"app/internal/domain/model"
)

// 入力不正（空カート、未割当商品、価格0以下など）
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// 対象が存在しない（商品・注文・小売）
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

func NewNotFoundError(resource string, id int64) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func AsNotFoundError(err error) (*NotFoundError, bool) {
	var ne *NotFoundError
	ok := errors.As(err, &ne)
	return ne, ok
}

// 在庫不足。どの商品がいくつ足りないかを呼び出し側に返す。
type InsufficientStockError struct {
	ProductID int64
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

func AsInsufficientStockError(err error) (*InsufficientStockError, bool) {
	var ie *InsufficientStockError
	ok := errors.As(err, &ie)
	return ie, ok
}

// 前提ステータスが成立しない遷移。注文は一切変更されない。
type InvalidStateTransitionError struct {
	OrderID    int64
	From       model.OrderStatus
	Transition string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("order %d: cannot %s from %s", e.OrderID, e.Transition, e.From)
}

func AsInvalidStateTransitionError(err error) (*InvalidStateTransitionError, bool) {
	var te *InvalidStateTransitionError
	ok := errors.As(err, &te)
	return te, ok
}

// ストア障害。コミット前ならトランザクションごと巻き戻る。
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func NewPersistenceError(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

func AsPersistenceError(err error) (*PersistenceError, bool) {
	var pe *PersistenceError
	ok := errors.As(err, &pe)
	return pe, ok
}

// 認証失敗（ログインのみで使う）
type UnauthenticatedError struct {
	Message string
}

func (e *UnauthenticatedError) Error() string { return e.Message }

func NewUnauthenticatedError(message string) error {
	return &UnauthenticatedError{Message: message}
}

func AsUnauthenticatedError(err error) (*UnauthenticatedError, bool) {
	var ue *UnauthenticatedError
	ok := errors.As(err, &ue)
	return ue, ok
}
