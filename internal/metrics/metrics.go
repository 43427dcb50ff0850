// Package metrics registra los contadores Prometheus del relay.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	submissionsTotal   *prometheus.CounterVec
	confirmationsTotal *prometheus.CounterVec
	emailsSentTotal    *prometheus.CounterVec
	duplicatesTotal    *prometheus.CounterVec
	upstreamErrors     prometheus.Counter
)

// Register inicializa los contadores contra el registry dado (nil usa el
// default) y retorna el handler para /metrics.
func Register(registry prometheus.Registerer) (http.Handler, error) {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	var err error
	once.Do(func() {
		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "formgate_submissions_total",
			Help: "Submissions procesadas por aplicación y resultado",
		}, []string{"app", "outcome"}) // outcome: sent|pending|duplicate|rejected

		confirmationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "formgate_confirmations_total",
			Help: "Canjes de confirmación por aplicación y resultado",
		}, []string{"app", "outcome"}) // outcome: completed|not_found|upstream_error

		emailsSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "formgate_emails_sent_total",
			Help: "Emails entregados por aplicación y tipo",
		}, []string{"app", "kind"}) // kind: final|confirmation|duplicate

		duplicatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "formgate_duplicates_refused_total",
			Help: "Registraciones rechazadas por ya estar completadas",
		}, []string{"app"})

		upstreamErrors = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "formgate_upstream_errors_total",
			Help: "Errores del servicio de suscripción externo",
		})

		for _, c := range []prometheus.Collector{
			submissionsTotal, confirmationsTotal, emailsSentTotal, duplicatesTotal, upstreamErrors,
		} {
			if e := registry.Register(c); e != nil {
				err = e
				return
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return promhttp.Handler(), nil
}

func Submission(app, outcome string) {
	if submissionsTotal != nil {
		submissionsTotal.WithLabelValues(app, outcome).Inc()
	}
}

func Confirmation(app, outcome string) {
	if confirmationsTotal != nil {
		confirmationsTotal.WithLabelValues(app, outcome).Inc()
	}
}

func EmailSent(app, kind string) {
	if emailsSentTotal != nil {
		emailsSentTotal.WithLabelValues(app, kind).Inc()
	}
}

func DuplicateRefused(app string) {
	if duplicatesTotal != nil {
		duplicatesTotal.WithLabelValues(app).Inc()
	}
}

func UpstreamError() {
	if upstreamErrors != nil {
		upstreamErrors.Inc()
	}
}
