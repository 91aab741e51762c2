package store

import (
	"context"
	"time"
)

type Review struct {
	ID        int64     `json:"id"`
	BookID    int64     `json:"book_id"`
	UserID    int64     `json:"user_id"`
	Rating    int       `json:"rating"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

const reviewCols = `id, book_id, user_id, rating, body, created_at`

func scanReview(row rowScanner) (Review, error) {
	var r Review
	err := row.Scan(&r.ID, &r.BookID, &r.UserID, &r.Rating, &r.Body, &r.CreatedAt)
	return r, err
}

// ListReviews returns ErrNotFound for an unknown book rather than an empty
// list.
func (s *Store) ListReviews(ctx context.Context, bookID int64) ([]Review, error) {
	if err := s.bookExists(ctx, bookID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reviewCols+` FROM reviews WHERE book_id = $1 ORDER BY id`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// CreateReview returns ErrInvalidReference if the book or user is missing.
func (s *Store) CreateReview(ctx context.Context, r Review) (Review, error) {
	out, err := scanReview(s.db.QueryRowContext(ctx,
		`INSERT INTO reviews (book_id, user_id, rating, body)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+reviewCols,
		r.BookID, r.UserID, r.Rating, r.Body))
	return out, classify(err)
}

func (s *Store) DeleteReview(ctx context.Context, id int64) error {
	return mustAffect(s.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id))
}
