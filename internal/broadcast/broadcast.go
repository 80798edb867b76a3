// Package broadcast publica eventos de mutación en tiempo real a todos
// los clientes conectados, a través de un canal pub/sub compartido entre
// procesos del servidor.
//
// La entrega es best-effort al momento del publish: el broadcast puede
// correr por delante de la persistencia (se emite antes de escribir cache
// y de encolar el job durable). No hay orden garantizado entre tipos de
// evento distintos, pero los eventos de una misma entidad conservan el
// orden de programa porque el orquestador publica en su propia goroutine.
package broadcast

import (
	"context"
	"encoding/json"
)

// Nombres de evento que consumen los clientes conectados.
const (
	EventPostCreated = "add post"    // payload: el post completo
	EventPostDeleted = "delete post" // payload: solo el id
	EventUserCreated = "add user"    // payload: el perfil completo
)

// Event es el envelope que viaja por el canal.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Broadcaster publica eventos hacia los suscriptores. Se construye
// explícitamente y se pasa por referencia al orquestador: no hay handle
// global mutable.
type Broadcaster interface {
	Publish(ctx context.Context, event string, payload any) error
}
