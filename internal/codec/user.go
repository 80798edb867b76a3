package codec

import (
	"time"

	"github.com/dropDatabas3/feedcore/internal/domain"
)

// EncodeUser serializa un perfil de usuario al field-map del cache.
// Los objetos anidados (blocked, notifications, social) van como JSON.
func EncodeUser(u domain.User) Fields {
	return Fields{
		"_id":            u.ID,
		"uId":            itoa(u.UID),
		"username":       u.Username,
		"email":          u.Email,
		"avatarColor":    u.AvatarColor,
		"createdAt":      u.CreatedAt.Format(time.RFC3339Nano),
		"postsCount":     itoa(u.PostsCount),
		"blocked":        mustJSON(u.Blocked),
		"blockedBy":      mustJSON(u.BlockedBy),
		"profilePicture": u.ProfilePicture,
		"followersCount": itoa(u.FollowersCount),
		"followingCount": itoa(u.FollowingCount),
		"notifications":  mustJSON(u.Notifications),
		"social":         mustJSON(u.Social),
		"work":           u.Work,
		"school":         u.School,
		"quote":          u.Quote,
		"location":       u.Location,
		"bgImageVersion": u.BgImageVersion,
		"bgImageId":      u.BgImageID,
	}
}

// DecodeUser reconstruye un perfil desde su field-map.
func DecodeUser(f Fields) domain.User {
	u := domain.User{
		ID:             f["_id"],
		UID:            f.Int("uId"),
		Username:       f["username"],
		Email:          f["email"],
		AvatarColor:    f["avatarColor"],
		CreatedAt:      f.Time("createdAt"),
		PostsCount:     f.Int("postsCount"),
		ProfilePicture: f["profilePicture"],
		FollowersCount: f.Int("followersCount"),
		FollowingCount: f.Int("followingCount"),
		Work:           f["work"],
		School:         f["school"],
		Quote:          f["quote"],
		Location:       f["location"],
		BgImageVersion: f["bgImageVersion"],
		BgImageID:      f["bgImageId"],
	}
	f.Unmarshal("blocked", &u.Blocked)
	f.Unmarshal("blockedBy", &u.BlockedBy)
	f.Unmarshal("notifications", &u.Notifications)
	f.Unmarshal("social", &u.Social)
	return u
}
