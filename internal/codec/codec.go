// Package codec serializa entidades de dominio hacia/desde el formato de
// field-map del cache (hash de campo → valor string).
//
// El decode es total: un valor almacenado malformado nunca produce error,
// degrada al valor crudo o al zero value (política parse-or-pass-through,
// requerida por compatibilidad con valores legacy heterogéneos).
package codec

import (
	"encoding/json"
	"strconv"
	"time"
)

// Fields es la representación plana de una entidad en el cache.
type Fields map[string]string

// Int decodifica un campo entero. Si el parse falla retorna 0; el valor
// crudo queda intacto en el map.
func (f Fields) Int(name string) int {
	n, err := strconv.Atoi(f[name])
	if err != nil {
		return 0
	}
	return n
}

// Time decodifica un campo de fecha en RFC3339. Si el parse falla retorna
// el zero time.
func (f Fields) Time(name string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, f[name])
	if err != nil {
		return time.Time{}
	}
	return t
}

// Unmarshal decodifica un campo JSON dentro de dst. Un valor que no es
// JSON válido deja dst sin tocar.
func (f Fields) Unmarshal(name string, dst any) {
	raw, ok := f[name]
	if !ok || raw == "" {
		return
	}
	_ = json.Unmarshal([]byte(raw), dst)
}

// JSONOr retorna el valor parseado como JSON, o el string crudo si el
// parse falla. Es el equivalente directo del parse-or-pass-through legacy.
func JSONOr(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func itoa(n int) string { return strconv.Itoa(n) }

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
