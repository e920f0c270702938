package postgres

import (
	"context"
	"fmt"
)

// schema DDL idempotente del ledger de farmacia. "Sin lote" se guarda como '' (nunca NULL).
var schema = []string{
	`CREATE TABLE IF NOT EXISTS bal_drug (
		drug_code   TEXT NOT NULL,
		lot_no      TEXT NOT NULL DEFAULT '',
		qty         NUMERIC(18,4) NOT NULL DEFAULT 0,
		amount      NUMERIC(18,4) NOT NULL DEFAULT 0,
		unit_price  NUMERIC(18,4) NOT NULL DEFAULT 0,
		unit_code   TEXT NOT NULL DEFAULT '',
		expiry_date DATE,
		expiry_text TEXT NOT NULL DEFAULT '',
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (drug_code, lot_no)
	)`,
	`CREATE TABLE IF NOT EXISTS stock_movements (
		id             UUID PRIMARY KEY,
		reference      TEXT NOT NULL,
		doc_type       TEXT NOT NULL,
		movement_date  DATE NOT NULL,
		year           INT NOT NULL,
		month          INT NOT NULL CHECK (month BETWEEN 1 AND 12),
		drug_code      TEXT NOT NULL,
		lot_no         TEXT NOT NULL DEFAULT '',
		unit_code      TEXT NOT NULL DEFAULT '',
		unit_cost      NUMERIC(18,4) NOT NULL DEFAULT 0,
		beg_qty        NUMERIC(18,4) NOT NULL DEFAULT 0,
		in_qty         NUMERIC(18,4) NOT NULL DEFAULT 0,
		out_qty        NUMERIC(18,4) NOT NULL DEFAULT 0,
		adj_qty        NUMERIC(18,4) NOT NULL DEFAULT 0,
		beg_amount     NUMERIC(18,4) NOT NULL DEFAULT 0,
		in_amount      NUMERIC(18,4) NOT NULL DEFAULT 0,
		out_amount     NUMERIC(18,4) NOT NULL DEFAULT 0,
		adj_amount     NUMERIC(18,4) NOT NULL DEFAULT 0,
		applied_qty    NUMERIC(18,4) NOT NULL DEFAULT 0,
		applied_amount NUMERIC(18,4) NOT NULL DEFAULT 0,
		expiry_date    DATE,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (reference, year, month, drug_code, lot_no)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_movements_period ON stock_movements (year, month, drug_code, lot_no)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_movements_key ON stock_movements (drug_code, lot_no, year, month)`,
	`CREATE TABLE IF NOT EXISTS beg_month_drug (
		year           INT NOT NULL,
		month          INT NOT NULL CHECK (month BETWEEN 1 AND 12),
		drug_code      TEXT NOT NULL,
		lot_no         TEXT NOT NULL DEFAULT '',
		qty            NUMERIC(18,4) NOT NULL DEFAULT 0,
		amount         NUMERIC(18,4) NOT NULL DEFAULT 0,
		unit_price     NUMERIC(18,4) NOT NULL DEFAULT 0,
		unit_code      TEXT NOT NULL DEFAULT '',
		expiry_date    DATE,
		source         TEXT NOT NULL,
		applied_qty    NUMERIC(18,4) NOT NULL DEFAULT 0,
		applied_amount NUMERIC(18,4) NOT NULL DEFAULT 0,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (year, month, drug_code, lot_no)
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_documents (
		reference       TEXT PRIMARY KEY,
		doc_type        TEXT NOT NULL,
		doc_date        DATE NOT NULL,
		year            INT NOT NULL,
		month           INT NOT NULL CHECK (month BETWEEN 1 AND 12),
		status          TEXT NOT NULL,
		remark          TEXT NOT NULL DEFAULT '',
		supplier_code   TEXT NOT NULL DEFAULT '',
		department_code TEXT NOT NULL DEFAULT '',
		total           NUMERIC(18,4) NOT NULL DEFAULT 0,
		allow_negative  BOOLEAN NOT NULL DEFAULT false,
		created_by      TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_documents_type_period ON inventory_documents (doc_type, year, month)`,
	`CREATE TABLE IF NOT EXISTS inventory_document_lines (
		id              UUID PRIMARY KEY,
		reference       TEXT NOT NULL REFERENCES inventory_documents(reference) ON DELETE CASCADE,
		line_no         INT NOT NULL,
		drug_code       TEXT NOT NULL,
		lot_no          TEXT NOT NULL DEFAULT '',
		unit_code       TEXT NOT NULL DEFAULT '',
		qty             NUMERIC(18,4) NOT NULL,
		system_qty      NUMERIC(18,4) NOT NULL DEFAULT 0,
		unit_cost       NUMERIC(18,4) NOT NULL DEFAULT 0,
		amount          NUMERIC(18,4) NOT NULL DEFAULT 0,
		applied_qty     NUMERIC(18,4) NOT NULL DEFAULT 0,
		applied_amount  NUMERIC(18,4) NOT NULL DEFAULT 0,
		expiry_date     DATE,
		UNIQUE (reference, line_no)
	)`,
	`CREATE TABLE IF NOT EXISTS period_closings (
		year         INT NOT NULL,
		month        INT NOT NULL CHECK (month BETWEEN 1 AND 12),
		status       TEXT NOT NULL,
		rows_carried INT NOT NULL DEFAULT 0,
		closed_by    TEXT NOT NULL DEFAULT '',
		closed_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (year, month)
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_audit (
		id           UUID PRIMARY KEY,
		reference    TEXT NOT NULL,
		doc_type     TEXT NOT NULL,
		action       TEXT NOT NULL,
		actor        TEXT NOT NULL DEFAULT '',
		before_image JSONB NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_audit_reference ON ledger_audit (reference, created_at)`,
}

// Migrate aplica el esquema. Es seguro ejecutarlo en cada arranque.
func Migrate(ctx context.Context, q Querier) error {
	for i, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return classify(fmt.Sprintf("migración %d", i+1), err)
		}
	}
	return nil
}
