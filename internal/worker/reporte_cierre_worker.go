package worker

// reporte_cierre_worker.go
// Renders the cash-close report PDF for a closed session and, when a
// recipient is configured, enqueues an email job with the PDF attached.

import (
	"context"
	"encoding/json"
	"fmt"

	"minisuper/internal/infra"
	"minisuper/internal/model"
	"minisuper/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ReporteCierrePayload is the job envelope sent to QueueReporteCierre.
type ReporteCierrePayload struct {
	SesionID string `json:"sesion_id"`
}

// ReporteCierreConfig holds the static report settings.
type ReporteCierreConfig struct {
	StoragePath  string
	Destinatario string
	Empresa      string
	RIF          string
}

type ReporteCierreWorker struct {
	cajaRepo    repository.CajaRepository
	usuarioRepo repository.UsuarioRepository
	dispatcher  *Dispatcher
	cfg         ReporteCierreConfig
}

func NewReporteCierreWorker(
	cajaRepo repository.CajaRepository,
	usuarioRepo repository.UsuarioRepository,
	dispatcher *Dispatcher,
	cfg ReporteCierreConfig,
) *ReporteCierreWorker {
	return &ReporteCierreWorker{
		cajaRepo:    cajaRepo,
		usuarioRepo: usuarioRepo,
		dispatcher:  dispatcher,
		cfg:         cfg,
	}
}

// Process handles a single report job:
//  1. Load the session (must be closed) and its per-method breakdown
//  2. Render the PDF
//  3. Enqueue the email when a recipient is configured
func (w *ReporteCierreWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ReporteCierrePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("reporte_cierre_worker: invalid payload")
		return nil
	}
	sesionID, err := uuid.Parse(payload.SesionID)
	if err != nil {
		log.Error().Str("sesion_id", payload.SesionID).Msg("reporte_cierre_worker: invalid sesion_id")
		return nil
	}

	sesion, err := w.cajaRepo.FindSesionByID(ctx, sesionID)
	if err != nil {
		return fmt.Errorf("reporte_cierre_worker: load session: %w", err)
	}
	if sesion.Estado != model.SesionCerrada {
		log.Warn().Str("sesion_id", payload.SesionID).Msg("reporte_cierre_worker: session still open, skipping")
		return nil
	}

	resumen, err := w.cajaRepo.ResumenPorMetodo(ctx, sesionID)
	if err != nil {
		return fmt.Errorf("reporte_cierre_worker: load summary: %w", err)
	}

	reporte := infra.ReporteCierre{
		Empresa: w.cfg.Empresa,
		RIF:     w.cfg.RIF,
		Sesion:  sesion,
		Resumen: resumen,
	}
	if sesion.Caja != nil {
		reporte.NumeroCaja = sesion.Caja.NumeroCaja
		reporte.NombreCaja = sesion.Caja.Nombre
	}
	if u, err := w.usuarioRepo.FindByID(ctx, sesion.UsuarioID); err == nil {
		reporte.Cajero = u.Nombre
	}

	pdfPath, err := infra.GenerateReporteCierrePDF(reporte, w.cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("reporte_cierre_worker: %w", err)
	}
	log.Info().Str("pdf", pdfPath).Str("sesion_id", payload.SesionID).Msg("reporte_cierre_worker: PDF generated")

	if w.cfg.Destinatario == "" || w.dispatcher == nil {
		return nil
	}
	emailJob := EmailJobPayload{
		ToEmail: w.cfg.Destinatario,
		Subject: fmt.Sprintf("Cierre de caja %d - %s", reporte.NumeroCaja, sesion.FechaApertura.Format("02/01/2006")),
		Body: fmt.Sprintf("Cajero: %s\nVentas: $%s en %d transacciones\nDiferencia: $%s",
			reporte.Cajero, sesion.TotalVentasUSD.StringFixed(2), sesion.TotalTransacciones, diferencia(sesion)),
		PDFPath: pdfPath,
	}
	if err := w.dispatcher.EnqueueEmail(ctx, emailJob); err != nil {
		log.Warn().Err(err).Str("email", w.cfg.Destinatario).Msg("reporte_cierre_worker: failed to enqueue email")
	}
	return nil
}

func diferencia(s *model.SesionCaja) string {
	if s.DiferenciaUSD == nil {
		return "0.00"
	}
	return s.DiferenciaUSD.StringFixed(2)
}
