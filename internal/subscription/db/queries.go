package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/willemschots/newsletter/internal/db"
	"github.com/willemschots/newsletter/internal/errorz"
	"github.com/willemschots/newsletter/internal/subscription"
)

type execFunc func(query string, params ...any) (sql.Result, error)
type queryFunc func(query string, params ...any) (*sql.Rows, error)

func insertSubscriber(q *db.Query, ef execFunc, s *subscription.Subscriber) error {
	if s.ID == uuid.Nil {
		return fmt.Errorf("zero uuid provided: %w", errorz.ErrConstraintViolated)
	}

	q.Unsafe(`INSERT INTO subscribers (id, email, name, status, subscribed_at) VALUES (`)
	q.Params(s.ID, string(s.Email), string(s.Name), string(s.Status), s.SubscribedAt)
	q.Unsafe(`)`)

	query, params := q.Get()

	_, err := ef(query, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return nil
}

func updateSubscriber(q *db.Query, ef execFunc, s *subscription.Subscriber) error {
	q.Unsafe(`UPDATE subscribers SET status = `)
	q.Param(string(s.Status))
	q.Unsafe(` WHERE id = `)
	q.Param(s.ID)

	query, params := q.Get()

	result, err := ef(query, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	if rows == 0 {
		return fmt.Errorf("subscriber not found: %w", errorz.ErrNotFound)
	}

	return nil
}

func selectSubscribers(q *db.Query, qf queryFunc, f *subscription.SubscriberFilter) ([]subscription.Subscriber, error) {
	q.Unsafe(`SELECT id, email, name, status, subscribed_at FROM subscribers WHERE 1=1 `)

	if len(f.IDs) > 0 {
		q.Unsafe(`AND id IN (`)
		q.Params(anySlice(f.IDs)...)
		q.Unsafe(`) `)
	}

	if len(f.Emails) > 0 {
		q.Unsafe(`AND email IN (`)
		q.Params(anySlice(f.Emails)...)
		q.Unsafe(`) `)
	}

	if len(f.Statuses) > 0 {
		q.Unsafe(`AND status IN (`)
		q.Params(anySlice(f.Statuses)...)
		q.Unsafe(`) `)
	}

	q.Unsafe(`ORDER BY subscribed_at ASC, id ASC`)

	query, params := q.Get()

	rows, err := qf(query, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]subscription.Subscriber, 0)
	for rows.Next() {
		var s subscription.Subscriber
		err := rows.Scan(&s.ID, &s.Email, &s.Name, &s.Status, &s.SubscribedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}

		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func insertToken(q *db.Query, ef execFunc, t *subscription.ConfirmationToken) error {
	if t.SubscriberID == uuid.Nil {
		return fmt.Errorf("zero uuid provided: %w", errorz.ErrConstraintViolated)
	}

	q.Unsafe(`INSERT INTO subscription_tokens (token, subscriber_id) VALUES (`)
	q.Params(t.Token.String(), t.SubscriberID)
	q.Unsafe(`)`)

	query, params := q.Get()

	_, err := ef(query, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return nil
}

func selectTokens(q *db.Query, qf queryFunc, f *subscription.TokenFilter) ([]subscription.ConfirmationToken, error) {
	q.Unsafe(`SELECT token, subscriber_id FROM subscription_tokens WHERE 1=1 `)

	if len(f.Tokens) > 0 {
		q.Unsafe(`AND token IN (`)
		for i, tok := range f.Tokens {
			if i > 0 {
				q.Unsafe(`, `)
			}
			q.Param(tok.String())
		}
		q.Unsafe(`) `)
	}

	if len(f.SubscriberIDs) > 0 {
		q.Unsafe(`AND subscriber_id IN (`)
		q.Params(anySlice(f.SubscriberIDs)...)
		q.Unsafe(`) `)
	}

	q.Unsafe(`ORDER BY token ASC`)

	query, params := q.Get()

	rows, err := qf(query, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]subscription.ConfirmationToken, 0)
	for rows.Next() {
		var t subscription.ConfirmationToken
		err := rows.Scan(&t.Token, &t.SubscriberID)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}

		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func anySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
