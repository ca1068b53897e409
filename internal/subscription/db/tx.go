package db

import (
	"database/sql"

	"github.com/willemschots/newsletter/internal/db"
	"github.com/willemschots/newsletter/internal/subscription"
)

type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// CreateSubscriber creates a subscriber in the database.
func (t *Tx) CreateSubscriber(s *subscription.Subscriber) error {
	return insertSubscriber(&db.Query{}, t.tx.Exec, s)
}

// UpdateSubscriber updates the status of a subscriber in the database.
// Other fields are immutable after creation.
// It returns errorz.ErrNotFound if no subscriber is found.
func (t *Tx) UpdateSubscriber(s *subscription.Subscriber) error {
	return updateSubscriber(&db.Query{}, t.tx.Exec, s)
}

// FindSubscribers queries for subscribers based on the provided filter.
// It returns an empty slice if no subscribers are found.
func (t *Tx) FindSubscribers(filter *subscription.SubscriberFilter) ([]subscription.Subscriber, error) {
	return selectSubscribers(&db.Query{}, t.tx.Query, filter)
}

// CreateToken creates a confirmation token in the database.
func (t *Tx) CreateToken(tok *subscription.ConfirmationToken) error {
	return insertToken(&db.Query{}, t.tx.Exec, tok)
}

// FindTokens queries for confirmation tokens based on the provided filter.
func (t *Tx) FindTokens(filter *subscription.TokenFilter) ([]subscription.ConfirmationToken, error) {
	return selectTokens(&db.Query{}, t.tx.Query, filter)
}
