package infra

import (
	"errors"
	"sync"
	"time"

	"minisuper/internal/metrics"

	"github.com/rs/zerolog/log"
)

// CircuitBreaker shields the sale path from a slow or failing exchange-rate
// provider. Closed lets calls through; after FailureThreshold consecutive
// failures it opens and fails fast for OpenTimeout; then a single probe is
// let through (half-open) and SuccessThreshold successful probes close it.
type CircuitBreaker struct {
	mu        sync.Mutex
	nombre    string
	estado    CBState
	fallos    int
	exitos    int
	abiertoEn time.Time
	sondeando bool
	cfg       CircuitBreakerConfig
	now       func() time.Time
}

// CBState is exported as a gauge value, so the order is stable.
type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned by Execute without calling fn.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitBreakerConfig struct {
	// Name labels logs and the minisuper_circuito_estado gauge.
	Name             string
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
}

// DefaultCBConfig is the PyDolar breaker used when none is injected.
func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             "pydolar",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		OpenTimeout:      2 * time.Minute,
	}
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCBConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	cb := &CircuitBreaker{nombre: cfg.Name, estado: CBClosed, cfg: cfg, now: time.Now}
	metrics.CircuitoEstado.WithLabelValues(cb.nombre).Set(float64(CBClosed))
	return cb
}

// State reports the current state, moving open → half-open once the
// timeout has elapsed.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.expirarLocked()
	return cb.estado
}

// Execute runs fn unless the breaker is open or a half-open probe is
// already in flight, in which case it returns ErrCircuitOpen.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	cb.expirarLocked()
	switch {
	case cb.estado == CBOpen:
		cb.mu.Unlock()
		return ErrCircuitOpen
	case cb.estado == CBHalfOpen && cb.sondeando:
		cb.mu.Unlock()
		return ErrCircuitOpen
	case cb.estado == CBHalfOpen:
		cb.sondeando = true
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.sondeando = false
	if err != nil {
		cb.registrarFalloLocked(err)
		return err
	}
	cb.registrarExitoLocked()
	return nil
}

func (cb *CircuitBreaker) expirarLocked() {
	if cb.estado == CBOpen && cb.now().Sub(cb.abiertoEn) >= cb.cfg.OpenTimeout {
		cb.cambiarLocked(CBHalfOpen)
	}
}

func (cb *CircuitBreaker) registrarFalloLocked(err error) {
	switch cb.estado {
	case CBClosed:
		cb.fallos++
		if cb.fallos >= cb.cfg.FailureThreshold {
			log.Warn().Err(err).Str("circuito", cb.nombre).Int("fallos", cb.fallos).Msg("circuit breaker: abierto")
			cb.abrirLocked()
		}
	case CBHalfOpen:
		log.Warn().Err(err).Str("circuito", cb.nombre).Msg("circuit breaker: sondeo fallido, se reabre")
		cb.abrirLocked()
	}
}

func (cb *CircuitBreaker) registrarExitoLocked() {
	switch cb.estado {
	case CBClosed:
		cb.fallos = 0
	case CBHalfOpen:
		cb.exitos++
		if cb.exitos >= cb.cfg.SuccessThreshold {
			log.Info().Str("circuito", cb.nombre).Msg("circuit breaker: cerrado")
			cb.cambiarLocked(CBClosed)
		}
	}
}

func (cb *CircuitBreaker) abrirLocked() {
	cb.abiertoEn = cb.now()
	cb.cambiarLocked(CBOpen)
}

func (cb *CircuitBreaker) cambiarLocked(estado CBState) {
	cb.estado = estado
	cb.fallos = 0
	cb.exitos = 0
	metrics.CircuitoEstado.WithLabelValues(cb.nombre).Set(float64(estado))
}
