package service

import "time"

// SetNumeradorReloj fixes the clock used to build sale numbers.
func SetNumeradorReloj(n *NumeradorVentas, now func() time.Time) { n.now = now }

// SetTasaReloj fixes the clock a TasaService uses to pick "today".
func SetTasaReloj(s TasaService, now func() time.Time) { s.(*tasaService).now = now }

// SetInventarioReloj fixes the clock an InventarioService uses for intake and expiry.
func SetInventarioReloj(s InventarioService, now func() time.Time) { s.(*inventarioService).now = now }
