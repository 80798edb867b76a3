package domain

import "time"

// Reactions acumula contadores por tipo de reacción.
// Los contadores nunca son negativos.
type Reactions struct {
	Like  int `json:"like"`
	Love  int `json:"love"`
	Happy int `json:"happy"`
	Sad   int `json:"sad"`
	Wow   int `json:"wow"`
	Angry int `json:"angry"`
}

// Post representa una publicación del feed.
//
// ID se asigna una sola vez al crear el post y nunca cambia.
type Post struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	AvatarColor    string    `json:"avatarColor"`
	ProfilePicture string    `json:"profilePicture"`
	Post           string    `json:"post"`
	BgColor        string    `json:"bgColor"`
	Feelings       string    `json:"feelings"`
	Privacy        string    `json:"privacy"`
	GifURL         string    `json:"gifUrl"`
	CommentsCount  int       `json:"commentsCount"`
	ImgVersion     string    `json:"imgVersion"`
	ImgID          string    `json:"imgId"`
	Reactions      Reactions `json:"reactions"`
	CreatedAt      time.Time `json:"createdAt"`
}

// HasMedia retorna true si el post tiene imagen subida o media externa.
// Es el predicado del feed "con imágenes".
func (p Post) HasMedia() bool {
	return (p.ImgID != "" && p.ImgVersion != "") || p.GifURL != ""
}
