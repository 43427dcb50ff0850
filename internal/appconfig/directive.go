package appconfig

import (
	"fmt"
	"net/mail"
	"strings"
)

// Directive es una regla de validación declarativa sobre un campo.
// El vocabulario es cerrado: una directiva fuera del set es un error de
// autoría de la configuración y aborta la carga del registry.
type Directive string

const (
	DirectiveRequired   Directive = "required"
	DirectiveForbidden  Directive = "forbidden"
	DirectiveBoolean    Directive = "boolean"
	DirectiveEmail      Directive = "email"
	DirectiveMandatory  Directive = "mandatory"
	DirectiveSingleLine Directive = "single-line"
)

// checkOrder fija el orden de evaluación de directivas sobre un campo.
var checkOrder = []Directive{
	DirectiveBoolean,
	DirectiveEmail,
	DirectiveForbidden,
	DirectiveMandatory,
	DirectiveRequired,
	DirectiveSingleLine,
}

// checks es la tabla de despacho: cada directiva valida (valor, presente) y
// retorna un mensaje de error o "".
var checks = map[Directive]func(value string, present bool) string{
	DirectiveBoolean: func(value string, present bool) string {
		if !present {
			return ""
		}
		if !isBooleanString(value) {
			return "Not a valid boolean."
		}
		return ""
	},
	DirectiveEmail: func(value string, present bool) string {
		if !present {
			return ""
		}
		if !ValidEmail(value) {
			return "Not a valid email address."
		}
		return ""
	},
	DirectiveForbidden: func(value string, present bool) string {
		if present && value != "" {
			return "Must be empty."
		}
		return ""
	},
	DirectiveMandatory: func(value string, present bool) string {
		if !present {
			return "Missing data for required field."
		}
		if !isTrueString(value) {
			return "Mandatory."
		}
		return ""
	},
	DirectiveRequired: func(value string, present bool) string {
		if !present {
			return "Missing data for required field."
		}
		return ""
	},
	DirectiveSingleLine: func(value string, present bool) string {
		if present && strings.ContainsAny(value, "\r\n") {
			return "Must be a single line."
		}
		return ""
	},
}

// ParseDirective valida un string contra el vocabulario de directivas.
func ParseDirective(s string) (Directive, error) {
	d := Directive(s)
	if _, ok := checks[d]; !ok {
		return "", fmt.Errorf("invalid option %q", s)
	}
	return d, nil
}

// Check aplica las directivas del campo en orden fijo y retorna todos los
// mensajes de error, no solo el primero.
func Check(directives []Directive, value string, present bool) []string {
	var msgs []string
	for _, d := range checkOrder {
		if !contains(directives, d) {
			continue
		}
		if msg := checks[d](value, present); msg != "" {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

// ValidEmail hace un chequeo sintáctico (forma RFC) de una dirección.
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	// Solo la dirección pelada, sin display name
	return addr.Address == s && strings.Contains(s, "@")
}

func contains(ds []Directive, d Directive) bool {
	for _, x := range ds {
		if x == d {
			return true
		}
	}
	return false
}

// Se validan los strings crudos, no valores deserializados: "yes" sigue
// siendo "yes" al llegar al template.
func isBooleanString(s string) bool {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1", "on", "false", "no", "n", "0", "off":
		return true
	}
	return false
}

func isTrueString(s string) bool {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1", "on":
		return true
	}
	return false
}
