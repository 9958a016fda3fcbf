package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Errores de dominio (sin dependencias externas).
// Los cuatro primeros tipos forman la taxonomía del libro de inventario;
// el resto son errores genéricos de recurso.
var (
	ErrValidation        = errors.New("validación fallida")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrMissingCost       = errors.New("costo unitario no resoluble")
	ErrInfrastructure    = errors.New("error de infraestructura")

	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrConflict     = errors.New("conflicto con el estado actual")
)

// Error es un error de dominio con tipo (Kind), mensaje legible y campos
// estructurados (lot_id, item_id, cantidades calculadas) para armar reportes.
// errors.Is(err, domain.ErrValidation) funciona vía Unwrap.
type Error struct {
	Kind    error
	Message string
	Fields  map[string]any
	Cause   error
}

// NewError construye un error del tipo indicado.
func NewError(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Validation atajo para ErrValidation.
func Validation(format string, args ...any) *Error {
	return NewError(ErrValidation, fmt.Sprintf(format, args...))
}

// InsufficientStock atajo para ErrInsufficientStock.
func InsufficientStock(msg string) *Error {
	return NewError(ErrInsufficientStock, msg)
}

// MissingCost atajo para ErrMissingCost.
func MissingCost(msg string) *Error {
	return NewError(ErrMissingCost, msg)
}

// NotFound atajo para ErrNotFound con el nombre del recurso.
func NotFound(resource string, id any) *Error {
	return NewError(ErrNotFound, resource+" no encontrado").With("id", id)
}

// Infrastructure envuelve una falla de almacenamiento, bloqueo o timeout.
// El llamador puede reintentar la operación completa.
func Infrastructure(op string, cause error) *Error {
	e := NewError(ErrInfrastructure, op)
	e.Cause = cause
	return e
}

// With agrega un campo estructurado y devuelve el mismo error.
func (e *Error) With(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Fields[k]))
		}
		msg += " (" + strings.Join(parts, ", ") + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap expone el tipo y la causa para errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// FieldsOf devuelve los campos estructurados de un *Error en la cadena, o nil.
func FieldsOf(err error) map[string]any {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}

// MessageOf devuelve el mensaje legible sin campos ni causa.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}

// IsRetryable indica si el error proviene de infraestructura (timeout, bloqueo, conexión).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrInfrastructure)
}
