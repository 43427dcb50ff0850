// Package render implementa la sustitución de variables en strings de
// configuración. Todo campo dinámico (sender, destinatarios, subject,
// redirect, headers) pasa por acá.
package render

import (
	"bytes"
	"strings"
	texttpl "text/template"
)

// Render expande text como template contra scope.
// Referenciar una clave ausente en scope es un error.
// Texto sin placeholders pasa sin cambios (fast-path).
func Render(text string, scope map[string]string) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	t, err := texttpl.New("field").Option("missingkey=error").Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, scope); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderOrLiteral expande text contra scope; si el render falla por cualquier
// motivo retorna el valor original sin expandir. Es la política para campos
// de configuración opcionales: un template roto no voltea el request.
// Las referencias a archivos de template NUNCA usan este camino.
func RenderOrLiteral(text string, scope map[string]string) string {
	out, err := Render(text, scope)
	if err != nil {
		return text
	}
	return out
}

// RenderAll expande cada valor de un mapa individualmente (las claves quedan
// intactas). Valores que fallan conservan su literal.
func RenderAll(m map[string]string, scope map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = RenderOrLiteral(v, scope)
	}
	return out
}
