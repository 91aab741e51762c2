package store

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Image struct {
	ID        int64     `json:"id"`
	Prompt    string    `json:"prompt"`
	URL       string    `json:"url"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// ImageFields is what a caller supplies to create an image.
type ImageFields struct {
	Prompt string
	URL    string
	TagIDs []int64
}

// Tag names come back as a JSON array in a text column so the query scans
// the same way under pgx and lib/pq.
const imageSelect = `
	SELECT i.id, i.prompt, i.url, i.created_at,
	       COALESCE(json_agg(t.name ORDER BY t.name) FILTER (WHERE t.name IS NOT NULL), '[]')::text
	FROM images i
	LEFT JOIN image_tags it ON it.image_id = i.id
	LEFT JOIN tags t ON t.id = it.tag_id`

func scanImage(row rowScanner) (Image, error) {
	var img Image
	var tags []byte
	if err := row.Scan(&img.ID, &img.Prompt, &img.URL, &img.CreatedAt, &tags); err != nil {
		return img, err
	}
	if err := json.Unmarshal(tags, &img.Tags); err != nil {
		return img, err
	}
	return img, nil
}

// CreateImage stores the image and its tag links in one statement. An
// unknown tag id yields ErrInvalidReference.
func (s *Store) CreateImage(ctx context.Context, f ImageFields) (int64, error) {
	ids := strings.Join(lo.Map(lo.Uniq(f.TagIDs), func(id int64, _ int) string {
		return strconv.FormatInt(id, 10)
	}), ",")

	var id int64
	err := s.db.QueryRowContext(ctx, `
		WITH img AS (
			INSERT INTO images (prompt, url) VALUES ($1, $2) RETURNING id
		), linked AS (
			INSERT INTO image_tags (image_id, tag_id)
			SELECT img.id, tag_id
			FROM img, unnest(string_to_array($3, ',')::bigint[]) AS tag_id
		)
		SELECT id FROM img`,
		f.Prompt, f.URL, ids).Scan(&id)
	return id, classify(err)
}

func (s *Store) GetImage(ctx context.Context, id int64) (Image, error) {
	img, err := scanImage(s.db.QueryRowContext(ctx,
		imageSelect+` WHERE i.id = $1 GROUP BY i.id`, id))
	return img, classify(err)
}

// ListImages returns every image, or only those carrying tag when it is
// non-empty.
func (s *Store) ListImages(ctx context.Context, tag string) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx, imageSelect+`
		WHERE $1 = '' OR EXISTS (
			SELECT 1 FROM image_tags ft JOIN tags fn ON fn.id = ft.tag_id
			WHERE ft.image_id = i.id AND fn.name = $1
		)
		GROUP BY i.id
		ORDER BY i.id`, tag)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := []Image{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func (s *Store) ListImageIDs(ctx context.Context) ([]int64, error) {
	return s.listIDs(ctx, `SELECT id FROM images ORDER BY id`)
}

func (s *Store) DeleteImage(ctx context.Context, id int64) error {
	return mustAffect(s.db.ExecContext(ctx, `DELETE FROM images WHERE id = $1`, id))
}
