package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation - некорректный ввод, отклоняется до любых изменений.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidPriority - приоритет передан, но не является числом.
	ErrInvalidPriority = fmt.Errorf("%w: priority must be a non-negative number", ErrValidation)
	// ErrEmptyQueue - в очереди нет вопросов для активации.
	ErrEmptyQueue = errors.New("question queue is empty")
	// ErrInvalidState - переход из не-OPEN состояния.
	ErrInvalidState = errors.New("submission already resolved")
	// ErrNotFound - вопрос, сессия или тред отсутствуют.
	ErrNotFound = errors.New("not found")
	// ErrNotConfigured - для сообщества не заданы нужные каналы.
	ErrNotConfigured = fmt.Errorf("%w: guild is not configured", ErrNotFound)
	// ErrNotEligible - пользователь не может открыть новую сессию.
	ErrNotEligible = errors.New("member is not eligible to open a submission")
	// ErrNotAuthor - удалить сессию может только её автор.
	ErrNotAuthor = errors.New("only the submission author may do this")
	// ErrStorage - сбой хранилища очереди или баллов.
	ErrStorage = errors.New("storage failure")
	// ErrDelivery - сбой платформы или доставки уведомления.
	ErrDelivery = errors.New("delivery failure")
)

// StorageError оборачивает ошибку хранилища с названием операции.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is позволяет сопоставлять ошибку с ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// DeliveryError оборачивает сбой вызова платформы.
type DeliveryError struct {
	Op  string
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery: %s: %v", e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Is позволяет сопоставлять ошибку с ErrDelivery.
func (e *DeliveryError) Is(target error) bool { return target == ErrDelivery }

// ValidationError указывает на поле, не прошедшее проверку.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is позволяет сопоставлять ошибку с ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// EligibilityError поясняет, почему пользователь не может открыть сессию.
type EligibilityError struct {
	Reason string
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("%v: %s", ErrNotEligible, e.Reason)
}

// Is позволяет сопоставлять ошибку с ErrNotEligible.
func (e *EligibilityError) Is(target error) bool { return target == ErrNotEligible }
