package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrDuplicate         = errors.New("la referencia ya existe")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrBalanceNotFound   = errors.New("no existe saldo para el medicamento/lote")
	ErrIntegrity         = errors.New("violación de integridad en la base de datos")
	ErrTransient         = errors.New("base de datos no disponible, reintente")
	ErrUnauthorized      = errors.New("no autorizado")
)

// ValidationError describe un campo requerido o inválido; se rechaza antes de abrir la transacción.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Invalid construye un ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientStockError lleva el detalle que el usuario ve cuando una salida supera el saldo.
type InsufficientStockError struct {
	DrugCode  string
	LotNo     string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	lot := e.LotNo
	if lot == "" {
		lot = "(sin lote)"
	}
	return fmt.Sprintf("stock insuficiente para %s lote %s: disponible %s, solicitado %s",
		e.DrugCode, lot, e.Available.String(), e.Requested.String())
}

// Unwrap permite errors.Is(err, ErrInsufficientStock) y errors.Is(err, ErrConflict).
func (e *InsufficientStockError) Unwrap() []error {
	return []error{ErrInsufficientStock, ErrConflict}
}

// NotFoundError identifica el recurso ausente (referencia, medicamento o lote).
type NotFoundError struct {
	Kind string
	Key  string
	base error
}

// NotFound construye un NotFoundError genérico (ErrNotFound).
func NotFound(kind, key string) error {
	return &NotFoundError{Kind: kind, Key: key, base: ErrNotFound}
}

// BalanceNotFound construye un NotFoundError para un saldo inexistente (ErrBalanceNotFound).
func BalanceNotFound(drugCode, lotNo string) error {
	key := drugCode
	if lotNo != "" {
		key += "/" + lotNo
	}
	return &NotFoundError{Kind: "saldo", Key: key, base: ErrBalanceNotFound}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q no encontrado", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() []error {
	if e.base == ErrBalanceNotFound {
		return []error{ErrBalanceNotFound, ErrNotFound}
	}
	return []error{e.base}
}
