// Package mail es el transporte de salida: recibe un mensaje ya renderizado
// y lo entrega por SMTP.
package mail

import (
	"context"
	"time"
)

// Body es el cuerpo de un mensaje: plain, html, o ambos
// (multipart/alternative).
type Body struct {
	Plain string
	HTML  string
}

// Empty reporta si no hay contenido en ninguna variante.
func (b Body) Empty() bool { return b.Plain == "" && b.HTML == "" }

// Message es un email completamente resuelto, listo para enviar.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	Body    Body
	Headers map[string]string
}

// Sender define el contrato del transporte.
type Sender interface {
	// Send entrega el mensaje. Debe respetar el deadline del contexto y el
	// timeout configurado del transporte.
	Send(ctx context.Context, m Message) error
}

// Config del transporte SMTP.
type Config struct {
	Host               string
	Port               int
	Username           string
	Password           string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool   // sólo dev
	Timeout            time.Duration
}
