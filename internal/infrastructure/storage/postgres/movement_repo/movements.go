// Package movement_repo provides the PostgreSQL movement ledger.
package movement_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"stockval/internal/core/id"
	"stockval/internal/core/types"
	"stockval/internal/domain/movements"
	"stockval/internal/domain/valuation"
	"stockval/internal/infrastructure/storage/postgres"
)

// Table holds the append-only movement ledger.
const Table = "stock_movements"

// Compile-time check that MovementRepo implements movements.Repository.
var _ movements.Repository = (*MovementRepo)(nil)

// selectColumns returns numerics as text so the engine's parser owns validation.
var selectColumns = []string{
	"id::text AS id",
	"movement_date",
	"kind",
	"quantity::text AS quantity",
	"COALESCE(unit_price::text, '') AS unit_price",
	"COALESCE(amount::text, '') AS amount",
}

var insertColumns = []string{
	"id", "product_id", "client_id", "movement_date", "kind",
	"quantity", "unit_price", "amount", "created_at",
}

type movementRow struct {
	ID        string `db:"id"`
	Date      string `db:"movement_date"`
	Kind      string `db:"kind"`
	Quantity  string `db:"quantity"`
	UnitPrice string `db:"unit_price"`
	Amount    string `db:"amount"`
}

func (r movementRow) toRaw() valuation.RawMovement {
	return valuation.RawMovement{
		ID:        r.ID,
		Date:      r.Date,
		Type:      r.Kind,
		Quantity:  r.Quantity,
		UnitPrice: r.UnitPrice,
		Amount:    r.Amount,
	}
}

// NewMovement is one ledger row to append.
type NewMovement struct {
	ID        id.ID
	ProductID id.ID
	ClientID  *id.ID
	Date      string
	Kind      string
	Quantity  types.Quantity
	UnitPrice *types.Money
	Amount    *types.Money
}

// MovementRepo implements movements.Repository.
type MovementRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

// NewMovementRepo creates a new movement repository.
func NewMovementRepo(txm *postgres.TxManager) *MovementRepo {
	return &MovementRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:     time.Now,
	}
}

// ListByProduct returns every movement of one product in insertion order.
func (r *MovementRepo) ListByProduct(ctx context.Context, productID id.ID) ([]valuation.RawMovement, error) {
	return r.list(ctx, squirrel.Eq{"product_id": productID})
}

// ListByClient returns every movement billed to one client in insertion order.
func (r *MovementRepo) ListByClient(ctx context.Context, clientID id.ID) ([]valuation.RawMovement, error) {
	return r.list(ctx, squirrel.Eq{"client_id": clientID})
}

func (r *MovementRepo) listQuery(where squirrel.Eq) squirrel.SelectBuilder {
	return r.builder.
		Select(selectColumns...).
		From(Table).
		Where(where).
		OrderBy("created_at", "id")
}

func (r *MovementRepo) list(ctx context.Context, where squirrel.Eq) ([]valuation.RawMovement, error) {
	sql, args, err := r.listQuery(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build movements query: %w", err)
	}

	var rows []movementRow
	err = r.txm.ReadOnly(ctx, func(ctx context.Context) error {
		return pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	out := make([]valuation.RawMovement, len(rows))
	for i, row := range rows {
		out[i] = row.toRaw()
	}
	return out, nil
}

// Append bulk-loads movements with COPY in one transaction.
func (r *MovementRepo) Append(ctx context.Context, items []NewMovement) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	rows := r.copyRows(items)
	var n int64
	err := r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		n, err = postgres.NewBatchInserter(r.txm).CopyFromSlice(ctx, Table, insertColumns, rows)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("copy movements: %w", err)
	}
	return n, nil
}

func (r *MovementRepo) copyRows(items []NewMovement) [][]any {
	// Strictly increasing created_at keeps the batch order stable on read.
	base := r.now().UTC()
	rows := make([][]any, len(items))
	for i, m := range items {
		movementID := m.ID
		if id.IsNil(movementID) {
			movementID = id.New()
		}
		rows[i] = []any{
			movementID,
			m.ProductID,
			m.ClientID,
			m.Date,
			m.Kind,
			numeric(m.Quantity),
			optionalNumeric(m.UnitPrice),
			optionalNumeric(m.Amount),
			base.Add(time.Duration(i) * time.Microsecond),
		}
	}
	return rows
}

func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func optionalNumeric(d *decimal.Decimal) pgtype.Numeric {
	if d == nil {
		return pgtype.Numeric{}
	}
	return numeric(*d)
}

// DeleteByProduct removes a product's ledger. Used by the seed command only.
func (r *MovementRepo) DeleteByProduct(ctx context.Context, productID id.ID) (int64, error) {
	sql, args, err := r.builder.Delete(Table).Where(squirrel.Eq{"product_id": productID}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete movements: %w", err)
	}
	return tag.RowsAffected(), nil
}
