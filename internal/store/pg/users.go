package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/feedcore/internal/domain"
	"github.com/dropDatabas3/feedcore/internal/store"
)

// userRepo implementa store.UserRepository.
type userRepo struct{ pool *pgxpool.Pool }

func (r *userRepo) Create(ctx context.Context, u domain.User) error {
	blocked, _ := json.Marshal(u.Blocked)
	blockedBy, _ := json.Marshal(u.BlockedBy)
	notifications, _ := json.Marshal(u.Notifications)
	social, _ := json.Marshal(u.Social)

	const query = `
		INSERT INTO users (
			id, uid, username, email, avatar_color, profile_picture,
			posts_count, work, school, quote, location,
			blocked, blocked_by, followers_count, following_count,
			notifications, social, bg_image_version, bg_image_id, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15,
			$16, $17, $18, $19, $20
		)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		u.ID, u.UID, u.Username, u.Email, u.AvatarColor, u.ProfilePicture,
		u.PostsCount, u.Work, u.School, u.Quote, u.Location,
		blocked, blockedBy, u.FollowersCount, u.FollowingCount,
		notifications, social, u.BgImageVersion, u.BgImageID, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("pg: insert user: %w", err)
	}
	return nil
}

func (r *userRepo) ByID(ctx context.Context, id string) (domain.User, error) {
	const query = `
		SELECT id, uid, username, email, avatar_color, profile_picture,
			posts_count, work, school, quote, location,
			blocked, blocked_by, followers_count, following_count,
			notifications, social, bg_image_version, bg_image_id, created_at
		FROM users WHERE id = $1
	`
	var u domain.User
	var blocked, blockedBy, notifications, social []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.UID, &u.Username, &u.Email, &u.AvatarColor, &u.ProfilePicture,
		&u.PostsCount, &u.Work, &u.School, &u.Quote, &u.Location,
		&blocked, &blockedBy, &u.FollowersCount, &u.FollowingCount,
		&notifications, &social, &u.BgImageVersion, &u.BgImageID, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, store.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("pg: get user: %w", err)
	}
	_ = json.Unmarshal(blocked, &u.Blocked)
	_ = json.Unmarshal(blockedBy, &u.BlockedBy)
	_ = json.Unmarshal(notifications, &u.Notifications)
	_ = json.Unmarshal(social, &u.Social)
	return u, nil
}
