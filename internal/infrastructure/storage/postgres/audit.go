package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"stokado/internal/core/id"
	"stokado/internal/domain/audit"
)

// CompressionAlgo specifies the compression algorithm used for state
// snapshots.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditRow is a stored audit trail item.
type AuditRow struct {
	ID               id.ID           `db:"id"`
	EntityType       string          `db:"entity_type"`
	EntityID         id.ID           `db:"entity_id"`
	Action           string          `db:"action"`
	ActorID          string          `db:"actor_id"`
	ActorName        string          `db:"actor_name"`
	Changes          json.RawMessage `db:"changes"`
	ChangesCompressed []byte         `db:"changes_compressed"`
	CompressionAlgo  CompressionAlgo `db:"compression_algo"`
	CreatedAt        time.Time       `db:"created_at"`
}

// Compile-time check that AuditService implements the domain contract.
var _ audit.Logger = (*AuditService)(nil)

// AuditService stores the change trail in sys_audit. Large state diffs
// are zstd-compressed; small ones stay as plain JSON for queryability.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditService creates a new audit service.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024, // 10KB
	}, nil
}

// Log implements audit.Logger.
func (s *AuditService) Log(ctx context.Context, rec audit.Record) error {
	changes, err := json.Marshal(map[string]any{
		"old": rec.OldState,
		"new": Diff(rec.OldState, rec.NewState),
	})
	if err != nil {
		return fmt.Errorf("marshal audit changes: %w", err)
	}

	row := AuditRow{
		ID:              id.New(),
		EntityType:      rec.EntityType,
		EntityID:        rec.EntityID,
		Action:          string(rec.Action),
		ActorID:         rec.ActorID,
		ActorName:       rec.ActorName,
		Changes:         changes,
		CompressionAlgo: CompressionNone,
		CreatedAt:       time.Now().UTC(),
	}

	if len(row.Changes) > s.compressThreshold {
		row.ChangesCompressed = s.encoder.EncodeAll(row.Changes, nil)
		row.Changes = nil
		row.CompressionAlgo = CompressionZstd
	}

	q := s.txManager.GetQuerier(ctx)
	_, err = q.Exec(ctx, `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, action, actor_id, actor_name,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		row.ID, row.EntityType, row.EntityID, row.Action,
		row.ActorID, row.ActorName,
		row.Changes, row.ChangesCompressed, row.CompressionAlgo,
		row.CreatedAt,
	)
	return err
}

// GetEntityHistory returns the audit trail of one entity, newest first.
// Compressed snapshots are decompressed transparently.
func (s *AuditService) GetEntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]AuditRow, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	q := s.txManager.GetQuerier(ctx)
	rows, err := q.Query(ctx, `
		SELECT id, entity_type, entity_id, action, actor_id, actor_name,
		       changes, changes_compressed, compression_algo, created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var history []AuditRow
	for rows.Next() {
		var row AuditRow
		err := rows.Scan(
			&row.ID, &row.EntityType, &row.EntityID, &row.Action,
			&row.ActorID, &row.ActorName,
			&row.Changes, &row.ChangesCompressed, &row.CompressionAlgo,
			&row.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}

		if row.CompressionAlgo == CompressionZstd && len(row.ChangesCompressed) > 0 {
			decoded, err := s.decoder.DecodeAll(row.ChangesCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress audit changes: %w", err)
			}
			row.Changes = decoded
			row.ChangesCompressed = nil
			row.CompressionAlgo = CompressionNone
		}
		history = append(history, row)
	}
	return history, rows.Err()
}

// Diff returns the keys of newState that differ from oldState.
func Diff(oldState, newState map[string]any) map[string]any {
	if newState == nil {
		return nil
	}
	if oldState == nil {
		return newState
	}

	diff := make(map[string]any)
	for k, newVal := range newState {
		oldVal, exists := oldState[k]
		if !exists || !equal(oldVal, newVal) {
			diff[k] = newVal
		}
	}
	return diff
}

func equal(a, b any) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(aj) == string(bj)
}
