package api

import (
	"errors"
	"fmt"
)

// Kind классифицирует ошибки обращения к бэкенду, чтобы вызывающий код
// мог выбрать реакцию, не разбирая текст сообщения.
type Kind int

const (
	// KindNetwork — запрос не дошёл до сервера или оборвался.
	KindNetwork Kind = iota
	// KindUnauthorized — токен отсутствует, истёк или отозван.
	KindUnauthorized
	// KindForbidden — у пользователя нет прав на операцию.
	KindForbidden
	// KindQuota — исчерпан бесплатный лимит анализов.
	KindQuota
	// KindValidation — сервер отверг входные данные.
	KindValidation
	// KindNotFound — запрошенный объект не существует.
	KindNotFound
	// KindStore — ошибка платформенного магазина покупок.
	KindStore
	// KindServer — внутренняя ошибка сервера или неожиданный ответ.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindQuota:
		return "quota"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindStore:
		return "store"
	default:
		return "server"
	}
}

// Error — классифицированная ошибка вызова бэкенда.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	cause      error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.cause)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError создает классифицированную ошибку.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError оборачивает причину в классифицированную ошибку.
func WrapError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

// KindOf возвращает класс ошибки. Ошибки без классификации считаются серверными.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindServer
}

// IsKind сообщает, относится ли ошибка к заданному классу.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
