// Package appconfig modela la configuración declarativa por aplicación:
// directivas de validación por campo, campos de envío templados, toggle de
// double opt-in, templates de email y destinos de redirect.
//
// La configuración se carga una vez al startup y es inmutable durante la
// vida del proceso.
package appconfig

import (
	"fmt"
	"os"
	"strings"
)

// Subjects por defecto para los emails de confirmación, sobreescribibles
// por aplicación.
const (
	DefaultConfirmationSubject          = "Please confirm your registration"
	DefaultConfirmationDuplicateSubject = "You are already registered"
)

// LangToken es el marcador de idioma en filenames de template multilenguaje.
const LangToken = "{lang}"

// AppConfig es la configuración estática de una aplicación (formulario,
// campaña, petición). Campos string nil-ables son punteros: nil significa
// "usar el valor que venga en el request", donde aplique.
type AppConfig struct {
	AppID     string
	RateLimit int // requests por hora; 0 = sin límite

	// Campos de envío; cada uno puede ser literal o template string.
	SendFrom *string
	SendTo   []string
	ReplyTo  *string
	Subject  *string
	Template *string // nombre de TemplateConfig

	IncludeVars bool
	Store       string // identificador del delivery log; "" = no loguear
	Confirm     bool
	CheckDup    bool // consultar el delivery log por registraciones ya completadas

	Redirect          string
	RedirectConfirmed string

	RequiredVars []string
	Headers      map[string]string
	Fields       map[string][]Directive

	// Solo relevantes cuando Confirm es true.
	ConfirmationFrom              *string
	ConfirmationTemplate          *string
	ConfirmationDuplicateTemplate *string
	ConfirmationSubject           string
	ConfirmationDuplicateSubject  string

	// Integración opcional con la community database.
	CD map[string]string
}

// appConfigYAML es la forma on-disk (claves según los applications.json
// históricos; YAML es superset de JSON así que ambos formatos cargan igual).
type appConfigYAML struct {
	RateLimit   int                 `yaml:"ratelimit"`
	From        *string             `yaml:"from"`
	To          []string            `yaml:"to"`
	ReplyTo     *string             `yaml:"reply_to"`
	Subject     *string             `yaml:"subject"`
	Template    *string             `yaml:"template"`
	IncludeVars bool                `yaml:"include_vars"`
	Store       string              `yaml:"store"`
	Confirm     bool                `yaml:"confirm"`
	CheckDup    bool                `yaml:"confirmation-check-duplicates"`
	Redirect    string              `yaml:"redirect"`
	RedirectOK  string              `yaml:"redirect-confirmed"`
	Required    []string            `yaml:"required_vars"`
	Headers     map[string]string   `yaml:"headers"`
	Fields      map[string][]string `yaml:"fields"`

	ConfirmationFrom        *string `yaml:"confirmation-from"`
	ConfirmationTemplate    *string `yaml:"confirmation-template"`
	ConfirmationDupTemplate *string `yaml:"confirmation-duplicate-template"`
	ConfirmationSubject     string  `yaml:"confirmation-subject"`
	ConfirmationDupSubject  string  `yaml:"confirmation-duplicate-subject"`

	CD map[string]string `yaml:"cd"`
}

func (y appConfigYAML) toConfig(appid string) (*AppConfig, error) {
	fields := make(map[string][]Directive, len(y.Fields))
	for name, opts := range y.Fields {
		ds := make([]Directive, 0, len(opts))
		for _, opt := range opts {
			d, err := ParseDirective(opt)
			if err != nil {
				return nil, fmt.Errorf("app %q, parameter %q: %w", appid, name, err)
			}
			ds = append(ds, d)
		}
		fields[name] = ds
	}

	cfg := &AppConfig{
		AppID:                         appid,
		RateLimit:                     y.RateLimit,
		SendFrom:                      y.From,
		SendTo:                        y.To,
		ReplyTo:                       y.ReplyTo,
		Subject:                       y.Subject,
		Template:                      y.Template,
		IncludeVars:                   y.IncludeVars,
		Store:                         y.Store,
		Confirm:                       y.Confirm,
		CheckDup:                      y.CheckDup,
		Redirect:                      y.Redirect,
		RedirectConfirmed:             y.RedirectOK,
		RequiredVars:                  y.Required,
		Headers:                       y.Headers,
		Fields:                        fields,
		ConfirmationFrom:              y.ConfirmationFrom,
		ConfirmationTemplate:          y.ConfirmationTemplate,
		ConfirmationDuplicateTemplate: y.ConfirmationDupTemplate,
		ConfirmationSubject:           y.ConfirmationSubject,
		ConfirmationDuplicateSubject:  y.ConfirmationDupSubject,
		CD:                            y.CD,
	}
	if cfg.ConfirmationSubject == "" {
		cfg.ConfirmationSubject = DefaultConfirmationSubject
	}
	if cfg.ConfirmationDuplicateSubject == "" {
		cfg.ConfirmationDuplicateSubject = DefaultConfirmationDuplicateSubject
	}
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	return cfg, nil
}

// DedupUnobservable reporta una combinación degenerada: el chequeo de
// duplicados busca la identidad en los campos guardados del log, pero sin
// include_vars el log guarda un mapa vacío y nunca puede matchear.
func (c *AppConfig) DedupUnobservable() bool {
	return c.CheckDup && !c.IncludeVars
}

// Describe retorna una vista serializable de la config, con las claves del
// formato on-disk. La usa la API de solo lectura.
func (c *AppConfig) Describe() map[string]any {
	fields := make(map[string][]string, len(c.Fields))
	for name, ds := range c.Fields {
		opts := make([]string, 0, len(ds))
		for _, d := range ds {
			opts = append(opts, string(d))
		}
		fields[name] = opts
	}

	v := map[string]any{
		"confirm":      c.Confirm,
		"include_vars": c.IncludeVars,
		"redirect":     c.Redirect,
	}
	if c.RateLimit > 0 {
		v["ratelimit"] = c.RateLimit
	}
	if c.SendFrom != nil {
		v["from"] = *c.SendFrom
	}
	if c.SendTo != nil {
		v["to"] = c.SendTo
	}
	if c.ReplyTo != nil {
		v["reply_to"] = *c.ReplyTo
	}
	if c.Subject != nil {
		v["subject"] = *c.Subject
	}
	if c.Template != nil {
		v["template"] = *c.Template
	}
	if c.Store != "" {
		v["store"] = c.Store
	}
	if c.RedirectConfirmed != "" {
		v["redirect-confirmed"] = c.RedirectConfirmed
	}
	if len(c.RequiredVars) > 0 {
		v["required_vars"] = c.RequiredVars
	}
	if len(c.Headers) > 0 {
		v["headers"] = c.Headers
	}
	if len(fields) > 0 {
		v["fields"] = fields
	}
	if c.Confirm {
		v["confirmation-check-duplicates"] = c.CheckDup
		v["confirmation-subject"] = c.ConfirmationSubject
		if c.ConfirmationFrom != nil {
			v["confirmation-from"] = *c.ConfirmationFrom
		}
		if c.ConfirmationTemplate != nil {
			v["confirmation-template"] = *c.ConfirmationTemplate
		}
		if c.ConfirmationDuplicateTemplate != nil {
			v["confirmation-duplicate-template"] = *c.ConfirmationDuplicateTemplate
			v["confirmation-duplicate-subject"] = c.ConfirmationDuplicateSubject
		}
	}
	return v
}

// TemplateContent es el contenido de una variante (html o plain) de un
// template: inline o referenciando un archivo bajo el templates dir.
type TemplateContent struct {
	Filename string `yaml:"filename"`
	Content  string `yaml:"content"`
}

// Resolve retorna el contenido del template. Contenido inline gana; si no,
// se lee el archivo, resolviendo el token {lang} con fallback al idioma por
// defecto. A diferencia de los campos opcionales, un template que no
// resuelve es un error duro.
func (t *TemplateContent) Resolve(dir, lang, defaultLang string) (string, error) {
	if t == nil {
		return "", nil
	}
	if t.Content != "" {
		return t.Content, nil
	}
	if t.Filename == "" {
		return "", nil
	}

	name := t.Filename
	if strings.Contains(name, LangToken) {
		candidate := strings.ReplaceAll(name, LangToken, lang)
		if lang == "" || !fileExists(join(dir, candidate)) {
			candidate = strings.ReplaceAll(name, LangToken, defaultLang)
		}
		name = candidate
	}

	b, err := os.ReadFile(join(dir, name))
	if err != nil {
		return "", fmt.Errorf("template file %s: %w", name, err)
	}
	return string(b), nil
}

// TemplateConfig es un template de email nombrado, con sus propios
// required_vars y headers que se unen a los de la aplicación que lo
// referencia (la config de la app tiene precedencia en headers).
type TemplateConfig struct {
	Name         string            `yaml:"-"`
	RequiredVars []string          `yaml:"required_vars"`
	Headers      map[string]string `yaml:"headers"`
	HTML         *TemplateContent  `yaml:"html"`
	Plain        *TemplateContent  `yaml:"plain"`
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

func join(dir, name string) string {
	if dir == "" {
		return name
	}
	return strings.TrimRight(dir, "/") + "/" + name
}
