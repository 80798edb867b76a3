// Package domain define las entidades del feed compartidas entre paquetes.
//
// Las entidades son structs planos sin lógica de persistencia; la
// serialización hacia cache vive en internal/codec y hacia Postgres en
// internal/store/pg.
package domain
