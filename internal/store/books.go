package store

import (
	"context"
	"database/sql"
)

type Book struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Rating      int    `json:"rating"`
}

const bookCols = `id, title, author, description, rating`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (Book, error) {
	var b Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Description, &b.Rating)
	return b, err
}

func (s *Store) ListBooks(ctx context.Context) ([]Book, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+bookCols+` FROM books ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (s *Store) GetBook(ctx context.Context, id int64) (Book, error) {
	b, err := scanBook(s.db.QueryRowContext(ctx,
		`SELECT `+bookCols+` FROM books WHERE id = $1`, id))
	return b, classify(err)
}

// CreateBook ignores b.ID and returns the stored row.
func (s *Store) CreateBook(ctx context.Context, b Book) (Book, error) {
	out, err := scanBook(s.db.QueryRowContext(ctx,
		`INSERT INTO books (title, author, description, rating)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+bookCols,
		b.Title, b.Author, b.Description, b.Rating))
	return out, classify(err)
}

func (s *Store) UpdateBook(ctx context.Context, id int64, b Book) (Book, error) {
	out, err := scanBook(s.db.QueryRowContext(ctx,
		`UPDATE books SET title = $2, author = $3, description = $4, rating = $5
		 WHERE id = $1
		 RETURNING `+bookCols,
		id, b.Title, b.Author, b.Description, b.Rating))
	return out, classify(err)
}

func (s *Store) DeleteBook(ctx context.Context, id int64) error {
	return mustAffect(s.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id))
}

func (s *Store) bookExists(ctx context.Context, id int64) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM books WHERE id = $1`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return err
}
