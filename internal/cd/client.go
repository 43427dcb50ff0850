// Package cd es el cliente de la community database externa: da de alta la
// registración confirmada vía su API de suscripción.
//
// Si el servicio responde un error, el body y el status se muestran al
// usuario sin modificar (la respuesta ya viene en formato legible). La
// llamada no es transaccional con el resto del flow de confirmación.
package cd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/dropDatabas3/formgate/internal/fault"
	"github.com/dropDatabas3/formgate/internal/forms"
	"github.com/dropDatabas3/formgate/internal/observability/logger"
)

// DateToken en un valor de la config cd se reemplaza por la fecha actual.
const DateToken = "<date>"

// Subscriber es el contrato que consume el workflow.
type Subscriber interface {
	// Subscribe registra la submission. Un error del servicio externo llega
	// como *fault.Upstream y debe pasarse al usuario verbatim.
	Subscribe(ctx context.Context, cfg map[string]string, sub forms.Submission) error
}

// Client habla con la community database.
type Client struct {
	BaseURL    string
	Passphrase string
	HTTP       *http.Client
}

// New crea un Client con el timeout dado.
func New(baseURL, passphrase string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/") + "/",
		Passphrase: passphrase,
		HTTP:       &http.Client{Timeout: timeout},
	}
}

// Subscribe hace el alta en dos pasos: primero POST de los datos de
// registración, después la confirmación automática firmada.
//
// Los parámetros signed_*_on y wants_*_info se difieren al paso de
// confirmación; de otro modo no se actualizarían en registraciones ya
// existentes en la community database.
func (c *Client) Subscribe(ctx context.Context, cfg map[string]string, sub forms.Submission) error {
	log := logger.From(ctx).With(logger.Component("cd"), logger.AppID(sub.AppID))

	subscribeParams := url.Values{}
	subscribeParams.Set("referrer", "campaign:"+sub.AppID)
	subscribeParams.Set("email1", sub.Confirm)
	if sub.Lang != "" {
		subscribeParams.Set("language", sub.Lang)
	}
	confirmParams := url.Values{}

	for key, ref := range cfg {
		var value string
		if ref == DateToken {
			value = time.Now().Format("2006-01-02")
		} else {
			value = sub.Fields[ref]
		}
		if value == "" {
			continue
		}
		if isDeferredParam(key) {
			confirmParams.Set(key, value)
		} else {
			subscribeParams.Set(key, value)
		}
	}

	// Paso 1: POST de los datos de registración.
	status, body, err := c.postForm(ctx, c.BaseURL+"subscribe-api", subscribeParams, nil)
	if err != nil {
		log.Error("subscribe call failed", logger.Err(err))
		return &fault.Upstream{StatusCode: http.StatusBadGateway, Body: "community database unavailable"}
	}
	if status/100 != 2 {
		log.Warn("subscribe refused", logger.Status(status))
		return &fault.Upstream{StatusCode: status, Body: body}
	}

	var created struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal([]byte(body), &created); err != nil {
		log.Error("subscribe response unparseable", logger.Err(err))
		return &fault.Upstream{StatusCode: http.StatusBadGateway, Body: "community database returned an invalid response"}
	}
	personID := created.ID.String()

	// Paso 2: confirmación automática firmada.
	confirmParams.Set("person", personID)
	confirmParams.Set("signature", c.sign(personID, confirmParams))

	// Los datos van en el query string; "go" viaja como form data.
	confirmURL := c.BaseURL + "command/confirm?" + confirmParams.Encode()
	status, body, err = c.postForm(ctx, confirmURL, url.Values{"go": {"1"}}, nil)
	if err != nil {
		log.Error("confirm call failed", logger.Err(err))
		return &fault.Upstream{StatusCode: http.StatusBadGateway, Body: "community database unavailable"}
	}
	if status/100 != 2 {
		log.Warn("confirm refused", logger.Status(status))
		return &fault.Upstream{StatusCode: status, Body: body}
	}

	log.Info("subscription completed", logger.String("person", personID))
	return nil
}

// sign arma la firma del comando persons.confirm: sha256 de los parámetros
// ordenados más la passphrase, separados por ";".
func (c *Client) sign(personID string, params url.Values) string {
	parts := []string{"command=persons.confirm", "record_id=" + personID}

	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "person" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, params.Get(k)))
	}
	parts = append(parts, c.Passphrase)

	sum := sha256.Sum256([]byte(strings.Join(parts, ";")))
	return hex.EncodeToString(sum[:])
}

func (c *Client) postForm(ctx context.Context, rawURL string, form url.Values, headers map[string]string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, string(b), nil
}

func isDeferredParam(key string) bool {
	return (strings.HasPrefix(key, "signed_") && strings.HasSuffix(key, "_on")) ||
		(strings.HasPrefix(key, "wants_") && strings.HasSuffix(key, "_info"))
}
