// Package resolver computa la configuración efectiva de un request: mezcla
// la config estática de la aplicación con los datos de la submission, expande
// templates y valida campos.
//
// Precedencia: config > request. Un campo fijado en la config nunca puede ser
// alterado por el request (evita spoofing de sender o redirect en
// aplicaciones que los fijan).
package resolver

import (
	"fmt"
	"sort"

	"github.com/dropDatabas3/formgate/internal/appconfig"
	"github.com/dropDatabas3/formgate/internal/fault"
	"github.com/dropDatabas3/formgate/internal/forms"
	"github.com/dropDatabas3/formgate/internal/render"
)

// EffectiveConfig es la configuración por-request ya mezclada y expandida.
// Los campos resueltos acá son los cinco mezclables más los derivados de
// templates; el resto de la config estática queda accesible vía App.
type EffectiveConfig struct {
	App *appconfig.AppConfig

	From     string
	To       []string
	ReplyTo  string
	Subject  string
	Template string // nombre de TemplateConfig; "" si no hay

	ConfirmationSubject string

	// Headers mezclados (config gana sobre template) y expandidos.
	Headers map[string]string

	// Unión de required_vars propios y de los templates referenciados.
	RequiredVars []string
}

// Resolver mezcla y valida contra un Registry inmutable.
type Resolver struct {
	registry *appconfig.Registry
}

// New crea un Resolver sobre el registry dado.
func New(registry *appconfig.Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Registry expone el registry subyacente (lo usa el workflow para resolver
// contenido de templates).
func (r *Resolver) Registry() *appconfig.Registry { return r.registry }

// Resolve computa la configuración efectiva para una submission.
//
// Orden de los pasos (importa para la correctitud):
//  1. lookup por appid (NotFound si no existe)
//  2. merge de los cinco campos mezclables, config gana, y expansión
//  3. confirmation_subject se expande igual pero sin fallback del request
//  4. headers: valores expandidos individualmente, claves intactas
//  5. unión de required_vars y headers de los templates referenciados
//     (los headers de la config tienen precedencia)
//  6. presencia de todos los required_vars (enumera TODOS los faltantes)
//  7. directivas por campo (enumera TODAS las fallas)
//  8. confirm address requerida y sintácticamente válida cuando confirm
//     es true
func (r *Resolver) Resolve(sub forms.Submission) (*EffectiveConfig, error) {
	app, ok := r.registry.App(sub.AppID)
	if !ok {
		return nil, fault.NotFound("configuration not found for this appid")
	}

	scope := sub.Fields

	eff := &EffectiveConfig{
		App:                 app,
		From:                mergeField(app.SendFrom, scope["from"], scope),
		ReplyTo:             mergeField(app.ReplyTo, scope["reply_to"], scope),
		Subject:             mergeField(app.Subject, scope["subject"], scope),
		Template:            mergeField(app.Template, scope["template"], scope),
		ConfirmationSubject: render.RenderOrLiteral(app.ConfirmationSubject, scope),
		Headers:             render.RenderAll(app.Headers, scope),
	}

	if app.SendTo != nil {
		eff.To = make([]string, 0, len(app.SendTo))
		for _, to := range app.SendTo {
			eff.To = append(eff.To, render.RenderOrLiteral(to, scope))
		}
	} else if v := scope["to"]; v != "" {
		eff.To = []string{render.RenderOrLiteral(v, scope)}
	}
	if eff.Headers == nil {
		eff.Headers = map[string]string{}
	}

	// Unión con los templates referenciados. El orden de precedencia es
	// request < template < config; los campos base de la config ya ganaron
	// en el merge de arriba.
	required := map[string]struct{}{}
	for _, v := range app.RequiredVars {
		required[v] = struct{}{}
	}
	refs := []string{eff.Template}
	for _, p := range []*string{app.ConfirmationTemplate, app.ConfirmationDuplicateTemplate} {
		if p != nil {
			refs = append(refs, *p)
		}
	}
	for _, name := range refs {
		if name == "" {
			continue
		}
		tpl, ok := r.registry.Template(name)
		if !ok {
			// El registry valida las referencias estáticas al startup; acá
			// solo puede caer un template inyectado por el request.
			return nil, fault.AppConfig(fmt.Sprintf("unknown template %q", name))
		}
		for _, v := range tpl.RequiredVars {
			required[v] = struct{}{}
		}
		for k, v := range tpl.Headers {
			if _, exists := eff.Headers[k]; !exists {
				eff.Headers[k] = render.RenderOrLiteral(v, scope)
			}
		}
	}

	eff.RequiredVars = make([]string, 0, len(required))
	for v := range required {
		eff.RequiredVars = append(eff.RequiredVars, v)
	}
	sort.Strings(eff.RequiredVars)

	if err := r.validate(app, eff, sub); err != nil {
		return nil, err
	}
	return eff, nil
}

// validate junta todas las fallas en un único BadRequest; nunca corta en la
// primera.
func (r *Resolver) validate(app *appconfig.AppConfig, eff *EffectiveConfig, sub forms.Submission) error {
	var failures []string

	if eff.From == "" {
		failures = append(failures, `"From" is required`)
	}
	if len(eff.To) == 0 {
		failures = append(failures, `"To" is required`)
	}
	if eff.Subject == "" {
		failures = append(failures, `"Subject" is required`)
	}
	if eff.Template == "" {
		failures = append(failures, `"Template" is required`)
	}

	for _, name := range eff.RequiredVars {
		if !sub.Has(name) {
			failures = append(failures, fmt.Sprintf("%q is required", name))
		}
	}

	// Directivas sobre el mapa declarado de la aplicación (no required_vars).
	fieldNames := make([]string, 0, len(app.Fields))
	for name := range app.Fields {
		fieldNames = append(fieldNames, name)
	}
	sort.Strings(fieldNames)
	for _, name := range fieldNames {
		value, present := sub.Fields[name]
		for _, msg := range appconfig.Check(app.Fields[name], value, present) {
			failures = append(failures, fmt.Sprintf("%s: %s", name, msg))
		}
	}

	if app.Confirm {
		switch {
		case sub.Confirm == "":
			failures = append(failures, `"Confirm" address is required`)
		case !appconfig.ValidEmail(sub.Confirm):
			failures = append(failures, `confirm: Not a valid email address.`)
		}
	}

	if len(failures) > 0 {
		return fault.BadRequestFields(failures)
	}
	return nil
}

// mergeField implementa la precedencia config > request y expande el valor
// elegido contra los campos crudos de la submission. Un render fallido deja
// el literal (campo opcional, no voltea el request).
func mergeField(configValue *string, requestValue string, scope map[string]string) string {
	selected := requestValue
	if configValue != nil {
		selected = *configValue
	}
	return render.RenderOrLiteral(selected, scope)
}
