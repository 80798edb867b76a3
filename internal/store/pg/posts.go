package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/feedcore/internal/domain"
	"github.com/dropDatabas3/feedcore/internal/store"
)

// postRepo implementa store.PostRepository.
type postRepo struct{ pool *pgxpool.Pool }

const postColumns = `
	id, user_id, username, email, avatar_color, profile_picture,
	post, bg_color, feelings, privacy, gif_url,
	comments_count, img_version, img_id, reactions, created_at`

// Create inserta el post con upsert por id y actualiza el contador del
// owner solo cuando el insert insertó de verdad: un reintento del mismo
// job no duplica ni el post ni el incremento.
func (r *postRepo) Create(ctx context.Context, p domain.Post, ownerID string) error {
	reactions, err := json.Marshal(p.Reactions)
	if err != nil {
		return fmt.Errorf("pg: encode reactions: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pg: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const query = `
		INSERT INTO posts (` + postColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO NOTHING
	`
	tag, err := tx.Exec(ctx, query,
		p.ID, p.UserID, p.Username, p.Email, p.AvatarColor, p.ProfilePicture,
		p.Post, p.BgColor, p.Feelings, p.Privacy, p.GifURL,
		p.CommentsCount, p.ImgVersion, p.ImgID, reactions, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("pg: insert post: %w", err)
	}

	if tag.RowsAffected() > 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE users SET posts_count = posts_count + 1 WHERE id = $1`, ownerID); err != nil {
			return fmt.Errorf("pg: increment posts_count: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// Delete borra el post y decrementa el contador del owner, con la misma
// guarda de RowsAffected para tolerar entregas repetidas.
func (r *postRepo) Delete(ctx context.Context, id, ownerID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pg: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pg: delete post: %w", err)
	}

	if tag.RowsAffected() > 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE users SET posts_count = GREATEST(posts_count - 1, 0) WHERE id = $1`, ownerID); err != nil {
			return fmt.Errorf("pg: decrement posts_count: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *postRepo) Query(ctx context.Context, f store.Filter, skip, limit int) ([]domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts` + whereClause(f) + ` ORDER BY created_at DESC`
	args := []any{}
	if skip > 0 {
		args = append(args, skip)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pg: query posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var p domain.Post
		var reactions []byte
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Username, &p.Email, &p.AvatarColor, &p.ProfilePicture,
			&p.Post, &p.BgColor, &p.Feelings, &p.Privacy, &p.GifURL,
			&p.CommentsCount, &p.ImgVersion, &p.ImgID, &reactions, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("pg: scan post: %w", err)
		}
		_ = json.Unmarshal(reactions, &p.Reactions)
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (r *postRepo) Count(ctx context.Context, f store.Filter) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts`+whereClause(f)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("pg: count posts: %w", err)
	}
	return n, nil
}

// whereClause traduce el filtro al predicado SQL. WithMedia reproduce el
// $or del fallback original: imagen subida o url de gif presente.
func whereClause(f store.Filter) string {
	if f.WithMedia {
		return ` WHERE (img_id <> '' OR gif_url <> '')`
	}
	return ""
}
