package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"minisuper/internal/apierror"
	"minisuper/internal/dto"
	"minisuper/internal/model"
	"minisuper/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	productoCachePrefix = "producto:barcode:"
	productoCacheTTL    = 10 * time.Minute
)

// ProductoService defines the business logic contract for products.
type ProductoService interface {
	Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error)
	// ConsultarPorCodigo is the POS price check: catalog data is cached,
	// stock and VES price are always computed live.
	ConsultarPorCodigo(ctx context.Context, codigo string) (*dto.ConsultaPrecioResponse, error)
}

type productoService struct {
	repo     repository.ProductoRepository
	loteRepo repository.LoteRepository
	tasas    ProveedorTasa
	rdb      *redis.Client
}

func NewProductoService(repo repository.ProductoRepository, loteRepo repository.LoteRepository, tasas ProveedorTasa, rdb *redis.Client) ProductoService {
	return &productoService{repo: repo, loteRepo: loteRepo, tasas: tasas, rdb: rdb}
}

func (s *productoService) Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error) {
	unidad := req.UnidadMedida
	if unidad == "" {
		unidad = "unidad"
	}
	p := &model.Producto{
		CodigoBarras:   strings.TrimSpace(req.CodigoBarras),
		CodigoInterno:  req.CodigoInterno,
		Nombre:         strings.TrimSpace(req.Nombre),
		Descripcion:    req.Descripcion,
		PrecioVentaUSD: redondear(req.PrecioVentaUSD),
		PrecioCostoUSD: redondear(req.PrecioCostoUSD),
		StockMinimo:    req.StockMinimo,
		UnidadMedida:   unidad,
		Activo:         true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicado) {
			return nil, apierror.NewConflict("Ya existe un producto con ese código")
		}
		return nil, err
	}
	log.Info().Str("producto_id", p.ID.String()).Str("codigo_barras", p.CodigoBarras).Msg("producto: creado")
	resp := productoToResponse(p)
	return &resp, nil
}

func (s *productoService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apierror.NewNotFound("Producto")
		}
		return nil, err
	}
	resp := productoToResponse(p)
	return &resp, nil
}

func (s *productoService) ConsultarPorCodigo(ctx context.Context, codigo string) (*dto.ConsultaPrecioResponse, error) {
	codigo = strings.TrimSpace(codigo)
	if codigo == "" {
		return nil, apierror.NewValidationError("codigo requerido")
	}

	prod, ok := s.leerCache(ctx, codigo)
	if !ok {
		p, err := s.repo.FindByBarcode(ctx, codigo)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apierror.NewNotFound("Producto")
			}
			return nil, err
		}
		r := productoToResponse(p)
		prod = &r
		s.escribirCache(ctx, codigo, prod)
	}

	id, err := uuid.Parse(prod.ID)
	if err != nil {
		return nil, err
	}
	stock, err := s.loteRepo.StockDisponible(ctx, id)
	if err != nil {
		return nil, err
	}
	tasa, err := s.tasas.TasaActual(ctx)
	if err != nil {
		return nil, err
	}

	return &dto.ConsultaPrecioResponse{
		Producto:        *prod,
		PrecioVentaVES:  aVES(prod.PrecioVentaUSD, tasa),
		TasaCambio:      tasa,
		StockDisponible: stock,
	}, nil
}

func (s *productoService) leerCache(ctx context.Context, codigo string) (*dto.ProductoResponse, bool) {
	if s.rdb == nil {
		return nil, false
	}
	b, err := s.rdb.Get(ctx, productoCachePrefix+codigo).Bytes()
	if err != nil {
		return nil, false
	}
	var p dto.ProductoResponse
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (s *productoService) escribirCache(ctx context.Context, codigo string, p *dto.ProductoResponse) {
	if s.rdb == nil {
		return
	}
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, productoCachePrefix+codigo, b, productoCacheTTL).Err(); err != nil {
		log.Debug().Err(err).Msg("producto: no se pudo escribir el cache")
	}
}

func productoToResponse(p *model.Producto) dto.ProductoResponse {
	return dto.ProductoResponse{
		ID:             p.ID.String(),
		CodigoBarras:   p.CodigoBarras,
		CodigoInterno:  p.CodigoInterno,
		Nombre:         p.Nombre,
		Descripcion:    p.Descripcion,
		PrecioVentaUSD: p.PrecioVentaUSD,
		PrecioCostoUSD: p.PrecioCostoUSD,
		StockMinimo:    p.StockMinimo,
		UnidadMedida:   p.UnidadMedida,
		Activo:         p.Activo,
	}
}

