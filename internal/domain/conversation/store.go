package conversation

import (
	"context"
	"fmt"
	"time"

	"shopwhiz/go_backend/internal/infra/db/postgres"
)

const (
	SenderUser    = "user"
	SenderAI      = "ai"
	SenderSystem  = "system"
	SenderSummary = "summary"
)

const (
	TypeText    = "text"
	TypeLink    = "link"
	TypeLoading = "loading"
)

type Turn struct {
	ID        string
	Store     string
	ClientID  string
	Sender    string
	Type      string
	Content   string
	CreatedAt time.Time
}

type Store struct {
	db *postgres.DB
}

func NewStore(db *postgres.DB) *Store {
	return &Store{db: db}
}

// MessagesByIDs loads the referenced turns in chronological order. IDs that
// do not belong to the (store, client) pair are silently absent from the
// result.
func (st *Store) MessagesByIDs(ctx context.Context, store, clientID string, ids []string) ([]Turn, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := st.db.Pool.Query(ctx, `
		SELECT id, sender, type, content, created_at
		FROM conversation_messages
		WHERE store = $1 AND client_id = $2 AND id = ANY($3)
		ORDER BY created_at`, store, clientID, ids)
	if err != nil {
		return nil, fmt.Errorf("messages query: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		t := Turn{Store: store, ClientID: clientID}
		if err := rows.Scan(&t.ID, &t.Sender, &t.Type, &t.Content, &t.CreatedAt); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (st *Store) Insert(ctx context.Context, t Turn) error {
	_, err := st.db.Pool.Exec(ctx, `
		INSERT INTO conversation_messages (id, store, client_id, sender, type, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.Store, t.ClientID, t.Sender, t.Type, t.Content, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// DeleteLoading removes the transient loading placeholder once the real
// reply has been persisted.
func (st *Store) DeleteLoading(ctx context.Context, store, clientID string) error {
	_, err := st.db.Pool.Exec(ctx, `
		DELETE FROM conversation_messages
		WHERE store = $1 AND client_id = $2 AND type = $3`,
		store, clientID, TypeLoading)
	return err
}
