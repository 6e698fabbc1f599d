// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VentasCreadas = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "minisuper",
		Name:      "ventas_creadas_total",
		Help:      "Completed sales.",
	})

	VentasAnuladas = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "minisuper",
		Name:      "ventas_anuladas_total",
		Help:      "Cancelled sales.",
	})

	StockInsuficiente = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "minisuper",
		Name:      "stock_insuficiente_total",
		Help:      "Sales rejected for insufficient stock.",
	})

	// TasaConsultas counts exchange-rate lookups by where the value came from:
	// cache, db, pydolar, fallback or error.
	TasaConsultas = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "minisuper",
		Name:      "tasa_consultas_total",
		Help:      "Exchange-rate lookups by source.",
	}, []string{"origen"})

	JobsProcesados = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "minisuper",
		Name:      "jobs_procesados_total",
		Help:      "Background jobs by queue and result.",
	}, []string{"queue", "resultado"})

	// CircuitoEstado is 0 closed, 1 open, 2 half-open.
	CircuitoEstado = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "minisuper",
		Name:      "circuito_estado",
		Help:      "Circuit breaker state by breaker name.",
	}, []string{"circuito"})
)
