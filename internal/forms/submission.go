// Package forms contiene el modelo de una submission entrante.
package forms

import (
	"encoding/json"
	"regexp"
)

var langPattern = regexp.MustCompile(`^[a-z]{2}$`)

// Submission son los datos de un request de formulario, ya saneados:
// valores vacíos removidos y lang validado. Se construye por request y se
// descarta al responder; también es el snapshot que viaja al pending store.
type Submission struct {
	AppID   string            `json:"appid"`
	Confirm string            `json:"confirm,omitempty"`
	Lang    string            `json:"lang,omitempty"`
	Fields  map[string]string `json:"fields"`
}

// FromValues arma una Submission desde los valores del request (query o form).
// Parámetros con valor vacío se descartan. Un lang que no matchee ^[a-z]{2}$
// se descarta en lugar de fallar.
func FromValues(values map[string][]string) Submission {
	fields := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) == 0 || vs[0] == "" {
			continue
		}
		fields[k] = vs[0]
	}

	lang := fields["lang"]
	if lang != "" && !langPattern.MatchString(lang) {
		delete(fields, "lang")
		lang = ""
	}

	return Submission{
		AppID:   fields["appid"],
		Confirm: fields["confirm"],
		Lang:    lang,
		Fields:  fields,
	}
}

// Has reporta si el campo está presente en la submission.
func (s Submission) Has(name string) bool {
	_, ok := s.Fields[name]
	return ok
}

// Encode serializa la submission para guardarla como snapshot pendiente.
func (s Submission) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// Decode reconstruye una Submission desde un snapshot guardado.
func Decode(data []byte) (Submission, error) {
	var s Submission
	if err := json.Unmarshal(data, &s); err != nil {
		return Submission{}, err
	}
	if s.Fields == nil {
		s.Fields = map[string]string{}
	}
	return s, nil
}
