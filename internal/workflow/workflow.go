// Package workflow orquesta los dos flows del relay:
//
//	A: submission inicial → envío directo, o alta de registración pendiente
//	   con email de confirmación (double opt-in).
//	B: canje de una confirmación → suscripción externa opcional, log y envío
//	   del email final.
//
// Cada paso es I/O bloqueante dentro del request; no hay workers de fondo.
// El orden de los pasos no es negociable: log y envío dependen de los efectos
// de los pasos anteriores.
package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/dropDatabas3/formgate/internal/appconfig"
	"github.com/dropDatabas3/formgate/internal/cd"
	"github.com/dropDatabas3/formgate/internal/deliverylog"
	"github.com/dropDatabas3/formgate/internal/fault"
	"github.com/dropDatabas3/formgate/internal/forms"
	"github.com/dropDatabas3/formgate/internal/mail"
	"github.com/dropDatabas3/formgate/internal/metrics"
	"github.com/dropDatabas3/formgate/internal/observability/logger"
	"github.com/dropDatabas3/formgate/internal/pending"
	"github.com/dropDatabas3/formgate/internal/rate"
	"github.com/dropDatabas3/formgate/internal/render"
	"github.com/dropDatabas3/formgate/internal/resolver"
)

// ErrRateLimited: la aplicación agotó su cuota de submissions por hora.
var ErrRateLimited = errors.New("workflow: rate limit exceeded")

// Service son los dos flows con sus colaboradores. Todos los campos son
// de solo lectura después de la construcción.
type Service struct {
	Resolver *resolver.Resolver
	Pending  *pending.Store
	Log      deliverylog.Log
	Sender   mail.Sender
	CD       cd.Subscriber
	Limiter  rate.Limiter

	// BaseURL del servicio, para armar los links de confirmación.
	BaseURL string

	// Dominios cuyos emails se rechazan de plano en flows de double opt-in.
	DomainBlocklist []string
}

// Outcome es el resultado de un flow: a dónde redirigir al usuario.
type Outcome struct {
	Redirect string
}

// HandleSubmission es el flow A. Valida y resuelve la config efectiva; sin
// double opt-in loguea y envía el email final; con double opt-in registra (o
// pisa) la registración pendiente y envía el email de confirmación.
func (s *Service) HandleSubmission(ctx context.Context, sub forms.Submission) (Outcome, error) {
	log := logger.From(ctx).With(logger.Component("workflow"), logger.AppID(sub.AppID))

	eff, err := s.Resolver.Resolve(sub)
	if err != nil {
		metrics.Submission(sub.AppID, "rejected")
		return Outcome{}, err
	}
	app := eff.App

	if s.Limiter != nil && app.RateLimit > 0 {
		res, err := s.Limiter.Allow(ctx, app.AppID, app.RateLimit)
		if err != nil {
			return Outcome{}, err
		}
		if !res.Allowed {
			log.Warn("rate limit exceeded", logger.Int("limit", app.RateLimit))
			metrics.Submission(sub.AppID, "rejected")
			return Outcome{}, ErrRateLimited
		}
	}

	if !app.Confirm {
		if err := s.deliverFinal(ctx, eff, sub); err != nil {
			return Outcome{}, err
		}
		metrics.Submission(sub.AppID, "sent")
		return Outcome{Redirect: render.RenderOrLiteral(app.Redirect, sub.Fields)}, nil
	}

	// Double opt-in desde acá.
	if err := s.checkBlocklist(ctx, sub.Confirm); err != nil {
		metrics.Submission(sub.AppID, "rejected")
		return Outcome{}, err
	}

	// Chequeo opcional de registraciones ya completadas: si la identidad ya
	// figura en el delivery log, se avisa y no se crea nada nuevo.
	if app.CheckDup && s.Log != nil && app.Store != "" {
		found, err := s.Log.Find(ctx, app.Store, "confirm", sub.Confirm)
		if err != nil {
			return Outcome{}, err
		}
		if found {
			if err := s.sendDuplicateNotice(ctx, eff, sub); err != nil {
				return Outcome{}, err
			}
			log.Info("duplicate registration refused")
			metrics.Submission(sub.AppID, "duplicate")
			metrics.DuplicateRefused(sub.AppID)
			return Outcome{Redirect: render.RenderOrLiteral(app.Redirect, sub.Fields)}, nil
		}
	}

	id, reused, err := s.Pending.Enqueue(ctx, sub)
	if err != nil {
		return Outcome{}, err
	}
	if reused {
		log.Info("pending registration reused", logger.PendingID(id))
	}

	if err := s.sendConfirmation(ctx, eff, sub, id); err != nil {
		return Outcome{}, err
	}
	metrics.Submission(sub.AppID, "pending")
	return Outcome{Redirect: render.RenderOrLiteral(app.Redirect, sub.Fields)}, nil
}

// HandleConfirm es el flow B. Canjea atómicamente la registración pendiente,
// re-resuelve la config (puede haber cambiado desde la submission), hace la
// suscripción externa si está configurada, y recién entonces loguea y envía
// el email final.
func (s *Service) HandleConfirm(ctx context.Context, id string) (Outcome, error) {
	log := logger.From(ctx).With(logger.Component("workflow"), logger.PendingID(id))

	sub, err := s.Pending.Redeem(ctx, id)
	if err != nil {
		if errors.Is(err, pending.ErrNotFound) {
			metrics.Confirmation("", "not_found")
			return Outcome{}, fault.NotFound("no such pending confirmation ID")
		}
		return Outcome{}, err
	}

	eff, err := s.Resolver.Resolve(sub)
	if err != nil {
		return Outcome{}, err
	}
	app := eff.App

	// La suscripción externa no es transaccional con el resto del paso:
	// "suscripto pero aún sin log local" es una limitación aceptada.
	if len(app.CD) > 0 && s.CD != nil {
		if err := s.CD.Subscribe(ctx, app.CD, sub); err != nil {
			log.Warn("subscription failed", logger.Err(err))
			metrics.Confirmation(sub.AppID, "upstream_error")
			metrics.UpstreamError()
			return Outcome{}, err
		}
	}

	if err := s.deliverFinal(ctx, eff, sub); err != nil {
		return Outcome{}, err
	}

	metrics.Confirmation(sub.AppID, "completed")
	redirect := app.RedirectConfirmed
	if redirect == "" {
		redirect = app.Redirect
	}
	return Outcome{Redirect: render.RenderOrLiteral(redirect, sub.Fields)}, nil
}

// deliverFinal renderiza y envía el email final y, si la app tiene store,
// recién después de un envío exitoso lo registra en el delivery log.
func (s *Service) deliverFinal(ctx context.Context, eff *resolver.EffectiveConfig, sub forms.Submission) error {
	app := eff.App

	tpl, ok := s.Resolver.Registry().Template(eff.Template)
	if !ok {
		return fault.AppConfig("unknown template " + eff.Template)
	}
	body, content, err := s.renderBody(tpl, sub, nil)
	if err != nil {
		return err
	}

	msg := mail.Message{
		From:    eff.From,
		To:      eff.To,
		ReplyTo: eff.ReplyTo,
		Subject: eff.Subject,
		Body:    body,
		Headers: eff.Headers,
	}
	if err := s.Sender.Send(ctx, msg); err != nil {
		return err
	}
	metrics.EmailSent(sub.AppID, "final")

	if s.Log != nil && app.Store != "" {
		vars := map[string]string{}
		if app.IncludeVars {
			vars = sub.Fields
		}
		entry := deliverylog.NewEntry(msg.From, msg.To, msg.Subject, content, msg.ReplyTo, vars)
		if err := s.Log.Append(ctx, app.Store, entry); err != nil {
			return err
		}
	}
	return nil
}

// sendConfirmation envía el email de double opt-in con el link de canje.
func (s *Service) sendConfirmation(ctx context.Context, eff *resolver.EffectiveConfig, sub forms.Submission, id string) error {
	app := eff.App
	tpl, err := s.lookupTemplate(app.ConfirmationTemplate, genericConfirmationTemplate)
	if err != nil {
		return err
	}

	extra := map[string]string{"confirmation_url": s.confirmationURL(id)}
	body, _, err := s.renderBody(tpl, sub, extra)
	if err != nil {
		return err
	}

	msg := mail.Message{
		From:    s.confirmationFrom(eff),
		To:      []string{sub.Confirm},
		Subject: eff.ConfirmationSubject,
		Body:    body,
		Headers: eff.Headers,
	}
	if err := s.Sender.Send(ctx, msg); err != nil {
		return err
	}
	metrics.EmailSent(sub.AppID, "confirmation")
	return nil
}

// sendDuplicateNotice avisa a una identidad ya registrada, sin crear estado.
func (s *Service) sendDuplicateNotice(ctx context.Context, eff *resolver.EffectiveConfig, sub forms.Submission) error {
	app := eff.App
	tpl, err := s.lookupTemplate(app.ConfirmationDuplicateTemplate, genericDuplicateTemplate)
	if err != nil {
		return err
	}

	body, _, err := s.renderBody(tpl, sub, nil)
	if err != nil {
		return err
	}

	msg := mail.Message{
		From:    s.confirmationFrom(eff),
		To:      []string{sub.Confirm},
		Subject: render.RenderOrLiteral(app.ConfirmationDuplicateSubject, sub.Fields),
		Body:    body,
		Headers: eff.Headers,
	}
	if err := s.Sender.Send(ctx, msg); err != nil {
		return err
	}
	metrics.EmailSent(sub.AppID, "duplicate")
	return nil
}

// Nombres de los templates genéricos de confirmación, usados cuando la app
// no define los propios. Resuelven a archivos multilenguaje bajo el
// templates dir.
const (
	genericConfirmationTemplate = "confirmation"
	genericDuplicateTemplate    = "confirmation-duplicate"
)

// lookupTemplate resuelve la referencia de template de la app, o cae al
// template genérico de servicio (archivo <name>.{lang}.html).
func (s *Service) lookupTemplate(ref *string, generic string) (*appconfig.TemplateConfig, error) {
	if ref != nil {
		tpl, ok := s.Resolver.Registry().Template(*ref)
		if !ok {
			return nil, fault.AppConfig("unknown template " + *ref)
		}
		return tpl, nil
	}
	return &appconfig.TemplateConfig{
		Name: generic,
		HTML: &appconfig.TemplateContent{Filename: generic + "." + appconfig.LangToken + ".html"},
	}, nil
}

// renderBody resuelve el contenido del template (inline o archivo, con token
// {lang}) y lo expande contra los campos de la submission. A diferencia de
// los campos opcionales, acá un render fallido es un error duro.
func (s *Service) renderBody(tpl *appconfig.TemplateConfig, sub forms.Submission, extra map[string]string) (mail.Body, string, error) {
	reg := s.Resolver.Registry()

	scope := make(map[string]string, len(sub.Fields)+len(extra))
	for k, v := range sub.Fields {
		scope[k] = v
	}
	for k, v := range extra {
		scope[k] = v
	}

	var body mail.Body
	for _, variant := range []struct {
		content *appconfig.TemplateContent
		out     *string
	}{
		{tpl.Plain, &body.Plain},
		{tpl.HTML, &body.HTML},
	} {
		raw, err := variant.content.Resolve(reg.TemplateDir(), sub.Lang, reg.DefaultLang())
		if err != nil {
			return mail.Body{}, "", err
		}
		if raw == "" {
			continue
		}
		rendered, err := render.Render(raw, scope)
		if err != nil {
			return mail.Body{}, "", err
		}
		*variant.out = rendered
	}
	if body.Empty() {
		return mail.Body{}, "", fault.AppConfig("template " + tpl.Name + " has no content")
	}

	// Para el log se guarda la variante de texto plano; HTML solo si es lo
	// único que hay.
	content := body.Plain
	if content == "" {
		content = body.HTML
	}
	return body, content, nil
}

func (s *Service) confirmationFrom(eff *resolver.EffectiveConfig) string {
	if eff.App.ConfirmationFrom != nil {
		return *eff.App.ConfirmationFrom
	}
	return eff.From
}

func (s *Service) confirmationURL(id string) string {
	return strings.TrimRight(s.BaseURL, "/") + "/confirm?id=" + id
}

func (s *Service) checkBlocklist(ctx context.Context, address string) error {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return nil
	}
	domain := strings.ToLower(address[at+1:])
	for _, blocked := range s.DomainBlocklist {
		if domain == blocked {
			logger.From(ctx).Info("address refused by domain blocklist", logger.String("domain", domain))
			return fault.BadRequest("Using this email address is not possible. Please try another one.")
		}
	}
	return nil
}
