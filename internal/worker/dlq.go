package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// PrefijoDLQ namespaces the dead letter list of each queue: dlq:jobs:email.
const PrefijoDLQ = "dlq:"

// EntradaDLQ is a job that exhausted MaxAttempts or could not be decoded.
type EntradaDLQ struct {
	Cola      string          `json:"cola"`
	Tipo      string          `json:"tipo"`
	Payload   json.RawMessage `json:"payload"`
	Motivo    string          `json:"motivo"`
	FallidoEn time.Time       `json:"fallido_en"`
	Intentos  int             `json:"intentos"`
}

func claveDLQ(cola string) string { return PrefijoDLQ + cola }

// enviarADLQ parks a failed job. Errors are logged only: the job is already
// lost from its queue and the worker must keep consuming.
func enviarADLQ(ctx context.Context, rdb *redis.Client, cola string, job Job, motivo string) {
	entrada := EntradaDLQ{
		Cola:      cola,
		Tipo:      job.Type,
		Payload:   job.Payload,
		Motivo:    motivo,
		FallidoEn: time.Now().UTC(),
		Intentos:  job.Attempts,
	}
	data, err := json.Marshal(entrada)
	if err != nil {
		log.Error().Err(err).Str("queue", cola).Msg("dlq: marshal")
		return
	}
	if err := rdb.LPush(ctx, claveDLQ(cola), data).Err(); err != nil {
		log.Error().Err(err).Str("queue", cola).Msg("dlq: push")
		return
	}
	log.Warn().
		Str("queue", cola).
		Str("type", job.Type).
		Str("motivo", motivo).
		Int("intentos", job.Attempts).
		Msg("dlq: job parked")
}

// LeerDLQ returns up to n entries of a queue's DLQ, newest first.
func LeerDLQ(ctx context.Context, rdb *redis.Client, cola string, n int64) ([]EntradaDLQ, error) {
	raws, err := rdb.LRange(ctx, claveDLQ(cola), 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]EntradaDLQ, 0, len(raws))
	for _, raw := range raws {
		var e EntradaDLQ
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			log.Warn().Err(err).Str("queue", cola).Msg("dlq: skipping unreadable entry")
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// LargoDLQ is the number of parked jobs for cola.
func LargoDLQ(ctx context.Context, rdb *redis.Client, cola string) (int64, error) {
	return rdb.LLen(ctx, claveDLQ(cola)).Result()
}
