package storage

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
)

type ProviderEvent struct {
	Provider        string
	ProviderEventID string
	EventType       string
	Payload         []byte
}

// ProviderEventRepository only writes inside the caller's transaction, so it holds no pool.
type ProviderEventRepository struct{}

func NewProviderEventRepository() *ProviderEventRepository {
	return &ProviderEventRepository{}
}

// Insert records a webhook delivery. A redelivery of the same provider event returns
// ErrDuplicateProviderEvent.
func (r *ProviderEventRepository) Insert(ctx context.Context, tx pgx.Tx, evt ProviderEvent) error {
	var payload any
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO shortlet_provider_events (provider, provider_event_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider, provider_event_id) DO NOTHING
	`, evt.Provider, evt.ProviderEventID, evt.EventType, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateProviderEvent
	}
	return nil
}
