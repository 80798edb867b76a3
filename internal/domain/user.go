package domain

import "time"

// NotificationSettings configura qué eventos generan notificación.
type NotificationSettings struct {
	Messages  bool `json:"messages"`
	Reactions bool `json:"reactions"`
	Comments  bool `json:"comments"`
	Follows   bool `json:"follows"`
}

// SocialLinks agrupa los perfiles sociales del usuario.
type SocialLinks struct {
	Facebook  string `json:"facebook"`
	Instagram string `json:"instagram"`
	Twitter   string `json:"twitter"`
	Youtube   string `json:"youtube"`
}

// User representa el perfil de un usuario del feed.
//
// UID es el rank numérico del usuario: ordena sus posts en el índice del
// cache y se asigna una sola vez al registrarse.
type User struct {
	ID             string               `json:"id"`
	UID            int                  `json:"uId"`
	Username       string               `json:"username"`
	Email          string               `json:"email"`
	AvatarColor    string               `json:"avatarColor"`
	ProfilePicture string               `json:"profilePicture"`
	PostsCount     int                  `json:"postsCount"`
	Work           string               `json:"work"`
	School         string               `json:"school"`
	Quote          string               `json:"quote"`
	Location       string               `json:"location"`
	Blocked        []string             `json:"blocked"`
	BlockedBy      []string             `json:"blockedBy"`
	FollowersCount int                  `json:"followersCount"`
	FollowingCount int                  `json:"followingCount"`
	Notifications  NotificationSettings `json:"notifications"`
	Social         SocialLinks          `json:"social"`
	BgImageVersion string               `json:"bgImageVersion"`
	BgImageID      string               `json:"bgImageId"`
	CreatedAt      time.Time            `json:"createdAt"`
}
