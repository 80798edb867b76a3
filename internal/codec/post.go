package codec

import (
	"time"

	"github.com/dropDatabas3/feedcore/internal/domain"
)

// EncodePost serializa un post al field-map del cache.
// Todo campo del post tiene entrada en el map; el decode es su inversa.
func EncodePost(p domain.Post) Fields {
	return Fields{
		"_id":            p.ID,
		"userId":         p.UserID,
		"username":       p.Username,
		"email":          p.Email,
		"avatarColor":    p.AvatarColor,
		"profilePicture": p.ProfilePicture,
		"post":           p.Post,
		"bgColor":        p.BgColor,
		"feelings":       p.Feelings,
		"privacy":        p.Privacy,
		"gifUrl":         p.GifURL,
		"commentsCount":  itoa(p.CommentsCount),
		"reactions":      mustJSON(p.Reactions),
		"imgVersion":     p.ImgVersion,
		"imgId":          p.ImgID,
		"createdAt":      p.CreatedAt.Format(time.RFC3339Nano),
	}
}

// DecodePost reconstruye un post desde su field-map.
func DecodePost(f Fields) domain.Post {
	p := domain.Post{
		ID:             f["_id"],
		UserID:         f["userId"],
		Username:       f["username"],
		Email:          f["email"],
		AvatarColor:    f["avatarColor"],
		ProfilePicture: f["profilePicture"],
		Post:           f["post"],
		BgColor:        f["bgColor"],
		Feelings:       f["feelings"],
		Privacy:        f["privacy"],
		GifURL:         f["gifUrl"],
		CommentsCount:  f.Int("commentsCount"),
		ImgVersion:     f["imgVersion"],
		ImgID:          f["imgId"],
		CreatedAt:      f.Time("createdAt"),
	}
	f.Unmarshal("reactions", &p.Reactions)
	return p
}
