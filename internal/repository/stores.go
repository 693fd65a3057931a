package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Stores bundles one implementation of every store plus the transaction
// manager they share
type Stores struct {
	Slots         SlotStore
	Sessions      SessionStore
	Directory     DirectoryStore
	Notifications NotificationStore
	Outbox        OutboxStore
	Tx            TxManager
}

// NewPostgresStores wires every store to the same pool
func NewPostgresStores(pool *pgxpool.Pool) Stores {
	return Stores{
		Slots:         NewSlotRepository(pool),
		Sessions:      NewSessionRepository(pool),
		Directory:     NewDirectoryRepository(pool),
		Notifications: NewNotificationRepository(pool),
		Outbox:        NewOutboxRepository(pool),
		Tx:            NewTxManager(pool),
	}
}
