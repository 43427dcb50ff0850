// Package http es el borde del relay: endpoints de registración y
// confirmación, más la API de solo lectura sobre configs y delivery logs.
package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/formgate/internal/appconfig"
	"github.com/dropDatabas3/formgate/internal/deliverylog"
	"github.com/dropDatabas3/formgate/internal/fault"
	"github.com/dropDatabas3/formgate/internal/forms"
	"github.com/dropDatabas3/formgate/internal/workflow"
)

// FormsHandler atiende los dos endpoints funcionales del relay.
type FormsHandler struct {
	Service *workflow.Service
}

func (h *FormsHandler) Register(r chi.Router) {
	r.Get("/email", h.Email)
	r.Post("/email", h.Email)
	r.Get("/confirm", h.Confirm)
}

// Email es el endpoint de registración; acepta GET (query) y POST (form).
func (h *FormsHandler) Email(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		WriteDomainError(w, r, fault.BadRequest("malformed request parameters"))
		return
	}
	sub := forms.FromValues(r.Form)
	if sub.AppID == "" {
		WriteDomainError(w, r, fault.BadRequest(`"appid" is required`))
		return
	}

	out, err := h.Service.HandleSubmission(r.Context(), sub)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	http.Redirect(w, r, out.Redirect, http.StatusFound)
}

// Confirm canjea una registración pendiente por id.
func (h *FormsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		WriteDomainError(w, r, fault.BadRequest(`"id" is required`))
		return
	}

	out, err := h.Service.HandleConfirm(r.Context(), id)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}
	http.Redirect(w, r, out.Redirect, http.StatusFound)
}

// APIHandler expone la API de solo lectura: configs de aplicación y
// contenido de los delivery logs.
type APIHandler struct {
	Registry *appconfig.Registry
	Log      deliverylog.Log
}

func (h *APIHandler) Register(r chi.Router) {
	r.Get("/apps", h.ListApps)
	r.Get("/app/{appid}", h.GetApp)
	r.Get("/app/{appid}/store", h.GetStore)
	r.Get("/app/{appid}/store/*", h.GetStore)
}

func (h *APIHandler) ListApps(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"applications": h.Registry.AppIDs()})
}

func (h *APIHandler) GetApp(w http.ResponseWriter, r *http.Request) {
	appid := chi.URLParam(r, "appid")
	app, ok := h.Registry.App(appid)
	if !ok {
		WriteDomainError(w, r, fault.NotFound("no application configuration for "+appid))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"parameters": app.Describe()})
}

// GetStore lista las entradas del delivery log de la app; con un key path
// ("include_vars/confirm") extrae solo ese valor de cada entrada.
func (h *APIHandler) GetStore(w http.ResponseWriter, r *http.Request) {
	appid := chi.URLParam(r, "appid")
	app, ok := h.Registry.App(appid)
	if !ok {
		WriteDomainError(w, r, fault.NotFound("no application configuration for "+appid))
		return
	}

	entries, err := h.Log.All(r.Context(), app.Store)
	if err != nil {
		WriteDomainError(w, r, err)
		return
	}

	keyPath := strings.Trim(chi.URLParam(r, "*"), "/")
	if keyPath == "" {
		WriteJSON(w, http.StatusOK, entries)
		return
	}
	WriteJSON(w, http.StatusOK, extractByKeyPath(entries, keyPath))
}

// extractByKeyPath baja por las claves del path en cada entrada; entradas
// sin alguna clave se saltean.
func extractByKeyPath(entries []deliverylog.Entry, keyPath string) []any {
	keys := strings.Split(keyPath, "/")
	rval := []any{}
	for _, e := range entries {
		// Round-trip por JSON para navegar con los nombres históricos.
		b, err := json.Marshal(e)
		if err != nil {
			continue
		}
		var node any
		if err := json.Unmarshal(b, &node); err != nil {
			continue
		}

		found := true
		for _, key := range keys {
			m, ok := node.(map[string]any)
			if !ok {
				found = false
				break
			}
			node, ok = m[key]
			if !ok {
				found = false
				break
			}
		}
		if found {
			rval = append(rval, node)
		}
	}
	return rval
}
