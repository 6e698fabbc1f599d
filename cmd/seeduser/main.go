// Crea/actualiza el usuario administrador y la caja 1.
// Uso: go run ./cmd/seeduser
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"minisuper/internal/config"
	"minisuper/internal/infra"
	"minisuper/internal/model"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	username := envOr("SEED_USERNAME", "admin")
	password := envOr("SEED_PASSWORD", "admin1234")
	nombre := "Administrador"
	email := envOr("SEED_EMAIL", "admin@minisuper.local")

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		log.Fatalf("bcrypt error: %v", err)
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	if err := infra.RunMigrations(db); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	ctx := context.Background()
	result := db.WithContext(ctx).Exec(`
		INSERT INTO usuarios (username, nombre, email, password_hash, rol, activo, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, true, NOW(), NOW())
		ON CONFLICT (username) DO UPDATE
		SET password_hash = EXCLUDED.password_hash,
		    nombre = EXCLUDED.nombre,
		    email = EXCLUDED.email,
		    rol = EXCLUDED.rol,
		    activo = true,
		    updated_at = NOW()
	`, username, nombre, email, string(hash), model.RolAdministrador)
	if result.Error != nil {
		log.Fatalf("insert error: %v", result.Error)
	}

	result = db.WithContext(ctx).Exec(`
		INSERT INTO cajas (numero_caja, nombre, activo, created_at, updated_at)
		VALUES (1, 'Caja Principal', true, NOW(), NOW())
		ON CONFLICT (numero_caja) DO NOTHING
	`)
	if result.Error != nil {
		log.Fatalf("insert caja error: %v", result.Error)
	}

	fmt.Printf("✅ Usuario '%s' creado/actualizado con password '%s'\n", username, password)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
