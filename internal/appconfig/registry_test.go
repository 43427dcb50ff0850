package appconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	apps := writeFile(t, dir, "applications.yml", `
contact:
  to: ["office@x.com"]
  subject: "Mensaje de {{.from}}"
  template: contact-email
  store: /tmp/contact.json
  redirect: "https://x.com/thanks"
  required_vars: [from, content]
  fields:
    disclaimer: [forbidden]
    privacy: [mandatory]
newsletter:
  confirm: true
  confirmation-template: confirm-email
  confirmation-duplicate-template: dup-email
  redirect: "https://x.com/pending"
  redirect-confirmed: "https://x.com/done"
`)
	templates := writeFile(t, dir, "templates.yml", `
contact-email:
  required_vars: [content]
  plain:
    content: "{{.content}}"
confirm-email:
  plain:
    content: "visit {{.confirmation_url}}"
dup-email:
  plain:
    content: "already registered"
`)

	r, err := Load(apps, templates, dir, "en")
	require.NoError(t, err)

	contact, ok := r.App("contact")
	require.True(t, ok)
	require.Equal(t, []string{"office@x.com"}, contact.SendTo)
	require.NotNil(t, contact.Subject)
	require.False(t, contact.Confirm)
	require.Equal(t, []Directive{DirectiveForbidden}, contact.Fields["disclaimer"])

	news, ok := r.App("newsletter")
	require.True(t, ok)
	require.True(t, news.Confirm)
	// defaults cuando la app no los declara
	require.Equal(t, DefaultConfirmationSubject, news.ConfirmationSubject)
	require.Equal(t, DefaultConfirmationDuplicateSubject, news.ConfirmationDuplicateSubject)

	require.Equal(t, []string{"contact", "newsletter"}, r.AppIDs())
}

func TestLoad_JSONIsValidYAML(t *testing.T) {
	dir := t.TempDir()
	apps := writeFile(t, dir, "applications.json", `{
  "contact": {"to": ["office@x.com"], "redirect": "https://x.com/thanks"}
}`)

	r, err := Load(apps, "", dir, "en")
	require.NoError(t, err)
	_, ok := r.App("contact")
	require.True(t, ok)
}

func TestLoad_DedupWithoutIncludeVarsIsFlagged(t *testing.T) {
	dir := t.TempDir()
	apps := writeFile(t, dir, "applications.yml", `
newsletter:
  confirm: true
  confirmation-check-duplicates: true
  store: news.json
`)

	// La combinación carga (hay configs históricas así) pero queda marcada:
	// sin include_vars el log no guarda la identidad y el chequeo de
	// duplicados no puede matchear nunca.
	r, err := Load(apps, "", dir, "en")
	require.NoError(t, err)

	news, ok := r.App("newsletter")
	require.True(t, ok)
	require.True(t, news.DedupUnobservable())

	news.IncludeVars = true
	require.False(t, news.DedupUnobservable())
}

func TestLoad_UnknownDirectiveAborts(t *testing.T) {
	dir := t.TempDir()
	apps := writeFile(t, dir, "applications.yml", `
contact:
  fields:
    name: [optional]
`)
	_, err := Load(apps, "", dir, "en")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid option")
}

func TestLoad_UnknownTemplateReferenceAborts(t *testing.T) {
	dir := t.TempDir()
	apps := writeFile(t, dir, "applications.yml", `
contact:
  template: nope
`)
	templates := writeFile(t, dir, "templates.yml", `
other: {}
`)
	_, err := Load(apps, templates, dir, "en")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown template")
}

func TestTemplateContent_InlineWins(t *testing.T) {
	tc := &TemplateContent{Filename: "ignored.txt", Content: "inline"}
	got, err := tc.Resolve(t.TempDir(), "en", "en")
	require.NoError(t, err)
	require.Equal(t, "inline", got)
}

func TestTemplateContent_LangTokenFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "body.en.txt", "english body")
	writeFile(t, dir, "body.de.txt", "deutscher text")

	tc := &TemplateContent{Filename: "body.{lang}.txt"}

	got, err := tc.Resolve(dir, "de", "en")
	require.NoError(t, err)
	require.Equal(t, "deutscher text", got)

	// idioma sin archivo: cae al default
	got, err = tc.Resolve(dir, "fr", "en")
	require.NoError(t, err)
	require.Equal(t, "english body", got)

	// sin lang en el request: directo al default
	got, err = tc.Resolve(dir, "", "en")
	require.NoError(t, err)
	require.Equal(t, "english body", got)
}

func TestTemplateContent_MissingFileIsHardError(t *testing.T) {
	tc := &TemplateContent{Filename: "missing.txt"}
	_, err := tc.Resolve(t.TempDir(), "en", "en")
	require.Error(t, err)
}
