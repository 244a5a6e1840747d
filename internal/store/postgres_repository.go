/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface
 * for the transfer history ledger.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 */

package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrTransferNotFound = errors.New("transfer not found")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateTransfer inserts the initial processing row for an orchestration run.
func (r *PostgresRepository) CreateTransfer(ctx context.Context, record *TransferRecord) error {
	query := `
		INSERT INTO transfers (
			id, user_id, flow, source_chain, destination_chain, recipient_address,
			amount_usd, asset_symbol, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.Exec(ctx, query,
		record.ID,
		record.UserID,
		record.Flow,
		record.SourceChain,
		record.DestinationChain,
		record.RecipientAddress,
		record.AmountUSD,
		record.AssetSymbol,
		record.Status,
		record.CreatedAt,
	)
	return err
}

// FinalizeTransfer applies the terminal outcome to an existing processing row.
func (r *PostgresRepository) FinalizeTransfer(ctx context.Context, params FinalizeTransferParams) error {
	query := `
		UPDATE transfers
		SET status = $2,
			native_amount = $3,
			failure_kind = $4,
			failure_reason = $5,
			tx_ref = $6,
			dest_tx_ref = $7,
			completed_at = $8
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, query,
		params.ID,
		params.Status,
		params.NativeAmount,
		params.FailureKind,
		params.FailureReason,
		params.TxRef,
		params.DestTxRef,
		params.CompletedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransferNotFound
	}
	return nil
}

// FindTransferByID retrieves one ledger row.
func (r *PostgresRepository) FindTransferByID(ctx context.Context, id uuid.UUID) (*TransferRecord, error) {
	query := `
		SELECT id, user_id, flow, source_chain, destination_chain, recipient_address,
			amount_usd, native_amount, asset_symbol, status, failure_kind,
			failure_reason, tx_ref, dest_tx_ref, created_at, completed_at
		FROM transfers
		WHERE id = $1`
	var record TransferRecord
	err := r.db.QueryRow(ctx, query, id).Scan(
		&record.ID,
		&record.UserID,
		&record.Flow,
		&record.SourceChain,
		&record.DestinationChain,
		&record.RecipientAddress,
		&record.AmountUSD,
		&record.NativeAmount,
		&record.AssetSymbol,
		&record.Status,
		&record.FailureKind,
		&record.FailureReason,
		&record.TxRef,
		&record.DestTxRef,
		&record.CreatedAt,
		&record.CompletedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransferNotFound
		}
		return nil, err
	}
	return &record, nil
}

// ListTransfersByUser returns a user's most recent ledger rows, newest first.
func (r *PostgresRepository) ListTransfersByUser(ctx context.Context, userID string, limit int) ([]TransferRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `
		SELECT id, user_id, flow, source_chain, destination_chain, recipient_address,
			amount_usd, native_amount, asset_symbol, status, failure_kind,
			failure_reason, tx_ref, dest_tx_ref, created_at, completed_at
		FROM transfers
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []TransferRecord
	for rows.Next() {
		var record TransferRecord
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.Flow,
			&record.SourceChain,
			&record.DestinationChain,
			&record.RecipientAddress,
			&record.AmountUSD,
			&record.NativeAmount,
			&record.AssetSymbol,
			&record.Status,
			&record.FailureKind,
			&record.FailureReason,
			&record.TxRef,
			&record.DestTxRef,
			&record.CreatedAt,
			&record.CompletedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
