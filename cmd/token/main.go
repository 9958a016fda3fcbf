// Command token emite un Bearer Token para operadores y servicios internos.
// La API no guarda usuarios: quien tenga JWT_SECRET puede emitir tokens.
//
//	go run ./cmd/token -user lab-01 -role storekeeper
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/labstock/pkg/config"
	"github.com/jhoicas/labstock/pkg/jwt"
)

func main() {
	userID := flag.String("user", "", "identificador del usuario (created_by de los asientos)")
	role := flag.String("role", "viewer", "rol: admin, storekeeper o viewer")
	minutes := flag.Int("exp", 0, "minutos de validez (0 = JWT_EXPIRATION)")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "-user es requerido")
		os.Exit(2)
	}
	switch *role {
	case "admin", "storekeeper", "viewer":
	default:
		fmt.Fprintf(os.Stderr, "rol desconocido: %q\n", *role)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cargar configuración:", err)
		os.Exit(1)
	}
	exp := cfg.JWT.Expiration
	if *minutes > 0 {
		exp = *minutes
	}
	tok, err := jwt.Generate(cfg.JWT.Secret, *userID, *role, cfg.JWT.Issuer, exp)
	if err != nil {
		fmt.Fprintln(os.Stderr, "emitir token:", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
