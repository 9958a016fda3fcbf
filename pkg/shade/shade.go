// Package shade normaliza códigos de color (shade) de lotes y órdenes para compararlos.
package shade

import (
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDigit convierte dígitos persas (۰-۹) y arábigo-índicos (٠-٩) a ASCII.
func foldDigit(r rune) rune {
	switch {
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	}
	return r
}

// Normalize aplica NFKC, pliega dígitos no ASCII y recorta espacios.
// "Ａ２ " y "A۲" quedan ambos como "A2".
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFKC, runes.Map(foldDigit))
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.TrimSpace(out)
}

// Matches indica si el código guardado coincide con el filtro. Un filtro nil acepta todo.
// Ambos lados se normalizan, así los registros externos no necesitan venir normalizados.
func Matches(stored string, filter *string) bool {
	if filter == nil {
		return true
	}
	return Normalize(stored) == Normalize(*filter)
}
