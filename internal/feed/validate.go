package feed

import (
	"errors"
	"fmt"
)

// ErrInvalidInput agrupa toda falla de validación de entrada. La
// validación es una llamada explícita al inicio de cada operación, sin
// wrapping implícito.
var ErrInvalidInput = errors.New("feed: invalid input")

// CreatePostInput son los datos que llegan de la capa HTTP (excluida de
// este core) para crear un post.
type CreatePostInput struct {
	UserID         string
	Username       string
	Email          string
	AvatarColor    string
	ProfilePicture string
	OwnerRank      int
	Post           string
	BgColor        string
	Feelings       string
	Privacy        string
	GifURL         string
	ImgVersion     string
	ImgID          string
}

// Validate retorna un error tipado si falta algún campo obligatorio.
func (in CreatePostInput) Validate() error {
	if in.UserID == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	if in.Username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if in.OwnerRank <= 0 {
		return fmt.Errorf("%w: owner rank must be positive", ErrInvalidInput)
	}
	if in.Post == "" && in.GifURL == "" && in.ImgID == "" {
		return fmt.Errorf("%w: post content is required", ErrInvalidInput)
	}
	return nil
}

// CreateUserInput son los datos para registrar un perfil. UID lo asigna
// la capa de registro (excluida) y actúa como rank del usuario.
type CreateUserInput struct {
	UID            int
	Username       string
	Email          string
	AvatarColor    string
	ProfilePicture string
}

// Validate retorna un error tipado si falta algún campo obligatorio.
func (in CreateUserInput) Validate() error {
	if in.Username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if in.Email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if in.UID <= 0 {
		return fmt.Errorf("%w: uId must be positive", ErrInvalidInput)
	}
	return nil
}

func validateIDPair(postID, ownerID string) error {
	if postID == "" {
		return fmt.Errorf("%w: post id is required", ErrInvalidInput)
	}
	if ownerID == "" {
		return fmt.Errorf("%w: owner id is required", ErrInvalidInput)
	}
	return nil
}
