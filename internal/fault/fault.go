// Package fault define la taxonomía de errores del relay.
//
// Los errores se crean en el punto de detección y viajan sin traducir hasta
// el borde HTTP, donde cada clase mapea a un status distinto:
//
//	NotFound   → 404 (appid desconocido, ID de confirmación inexistente/expirado)
//	BadRequest → 422 (campos requeridos faltantes, directivas fallidas, confirm ausente)
//	AppConfig  → 500 (error de autoría en la configuración de la aplicación)
//	Upstream   → status y body verbatim del servicio externo
package fault

import (
	"errors"
	"strings"
)

// Kind clasifica un error del dominio.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindBadRequest
	KindAppConfig
)

// Error es un error del dominio con clase y, para BadRequest, el detalle
// por campo. Validación enumera TODOS los campos fallidos, no solo el primero.
type Error struct {
	Kind    Kind
	Message string
	Fields  []string // mensajes por campo, formato "campo: detalle"
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return strings.Join(e.Fields, "\n")
	}
	return e.Message
}

// NotFound crea un error de clase NotFound.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// BadRequest crea un error de clase BadRequest con un mensaje simple.
func BadRequest(msg string) *Error {
	return &Error{Kind: KindBadRequest, Message: msg}
}

// BadRequestFields crea un error de clase BadRequest enumerando los campos fallidos.
func BadRequestFields(fields []string) *Error {
	return &Error{Kind: KindBadRequest, Fields: fields}
}

// AppConfig crea un error de autoría de configuración.
func AppConfig(msg string) *Error {
	return &Error{Kind: KindAppConfig, Message: msg}
}

// KindOf retorna la clase de un error, o 0 si no es un *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Upstream transporta la respuesta de error de un servicio externo
// (la community database) que debe mostrarse al usuario sin modificar.
type Upstream struct {
	StatusCode int
	Body       string
}

func (u *Upstream) Error() string {
	return "upstream error"
}

// AsUpstream extrae un *Upstream de la cadena de errores.
func AsUpstream(err error) (*Upstream, bool) {
	var u *Upstream
	if errors.As(err, &u) {
		return u, true
	}
	return nil, false
}
