package repository

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
)

// ContactStore user directory lookups, only consulted when the presence
// scope is "contacts"
type ContactStore interface {
	FindContacts(ctx context.Context, userID string) ([]string, error)
}

type contactStore struct {
	db *pgxpool.Pool
}

// NewContactStore create a ContactStore
func NewContactStore(db *pgxpool.Pool) ContactStore {
	return &contactStore{db: db}
}

func (r *contactStore) FindContacts(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		"SELECT contact_id FROM contacts WHERE user_id = $1", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []string
	for rows.Next() {
		var contactID string
		if err := rows.Scan(&contactID); err != nil {
			return nil, err
		}
		contacts = append(contacts, contactID)
	}
	return contacts, rows.Err()
}
