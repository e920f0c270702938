package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/clinica-farmacia/internal/domain"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// classify traduce errores de PostgreSQL/pgx a los errores de dominio:
//
//	23505, 23503, 23502, 23514      -> ErrIntegrity
//	40001, 40P01, 55P03, conexión   -> ErrTransient (reintentable)
//
// La cancelación del contexto se devuelve tal cual (el llamador ya sabe que venció).
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503", "23502", "23514":
			return fmt.Errorf("%s: %w (%s %s)", op, domain.ErrIntegrity, pgErr.Code, pgErr.ConstraintName)
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%s: %w (%s)", op, domain.ErrTransient, pgErr.Code)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var netErr net.Error
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) || errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// where arma condiciones dinámicas numerando los placeholders ($1, $2, ...).
type where struct {
	conds []string
	args  []any
}

// add agrega una condición con un solo placeholder, escrito como %d: "drug_code = $%d".
func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *where) raw(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}
