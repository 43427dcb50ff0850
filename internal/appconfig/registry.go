package appconfig

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/formgate/internal/observability/logger"
)

// Registry contiene todas las configuraciones de aplicación y de template,
// cargadas una vez al startup. Inmutable después de Load; se pasa por
// referencia a los handlers, nunca como global de paquete.
type Registry struct {
	apps        map[string]*AppConfig
	templates   map[string]*TemplateConfig
	templateDir string
	defaultLang string
}

// Load lee los archivos declarativos de aplicaciones y templates.
// Directivas fuera del vocabulario y referencias a templates inexistentes
// abortan la carga: son defectos de autoría, mejor fallar al deploy que
// con un 500 por request.
func Load(appsPath, templatesPath, templateDir, defaultLang string) (*Registry, error) {
	log := logger.Named("appconfig")

	var rawApps map[string]appConfigYAML
	if err := loadYAMLFile(appsPath, &rawApps); err != nil {
		return nil, fmt.Errorf("load applications: %w", err)
	}

	var rawTemplates map[string]*TemplateConfig
	if templatesPath != "" {
		if err := loadYAMLFile(templatesPath, &rawTemplates); err != nil {
			return nil, fmt.Errorf("load templates: %w", err)
		}
	}

	templates := make(map[string]*TemplateConfig, len(rawTemplates))
	for name, t := range rawTemplates {
		if t == nil {
			t = &TemplateConfig{}
		}
		t.Name = name
		if t.Headers == nil {
			t.Headers = map[string]string{}
		}
		templates[name] = t
	}

	if defaultLang == "" {
		defaultLang = "en"
	}

	r := &Registry{
		apps:        make(map[string]*AppConfig, len(rawApps)),
		templates:   templates,
		templateDir: templateDir,
		defaultLang: defaultLang,
	}

	for appid, raw := range rawApps {
		cfg, err := raw.toConfig(appid)
		if err != nil {
			return nil, err
		}
		for _, ref := range []*string{cfg.Template, cfg.ConfirmationTemplate, cfg.ConfirmationDuplicateTemplate} {
			if ref == nil {
				continue
			}
			if _, ok := templates[*ref]; !ok {
				return nil, fmt.Errorf("app %q references unknown template %q", appid, *ref)
			}
		}
		if cfg.DedupUnobservable() {
			log.Warn("confirmation-check-duplicates is on but include_vars is off; duplicates will never be detected",
				logger.AppID(appid))
		}
		r.apps[appid] = cfg
	}

	log.Info("application registry loaded",
		logger.Int("apps", len(r.apps)),
		logger.Int("templates", len(r.templates)),
	)
	return r, nil
}

// App busca la configuración de una aplicación por appid.
func (r *Registry) App(appid string) (*AppConfig, bool) {
	cfg, ok := r.apps[appid]
	return cfg, ok
}

// Template busca un template por nombre.
func (r *Registry) Template(name string) (*TemplateConfig, bool) {
	t, ok := r.templates[name]
	return t, ok
}

// AppIDs lista los appids registrados, ordenados.
func (r *Registry) AppIDs() []string {
	ids := make([]string, 0, len(r.apps))
	for id := range r.apps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TemplateDir retorna el directorio base de archivos de template.
func (r *Registry) TemplateDir() string { return r.templateDir }

// DefaultLang retorna el idioma de fallback para templates multilenguaje.
func (r *Registry) DefaultLang() string { return r.defaultLang }

// loadYAMLFile parsea YAML (o JSON, que es YAML válido) desde un archivo.
func loadYAMLFile(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, out)
}
