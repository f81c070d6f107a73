package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrNoActiveInstrument indica que el catálogo no devolvió ningún mercado
	// que cumpla el filtro de símbolo + duración.
	ErrNoActiveInstrument = errors.New("no active instrument found")

	// ErrNoStrike indica que la question del mercado no contiene un strike
	// parseable. El instrumento es inutilizable.
	ErrNoStrike = errors.New("no strike price found in question")
)

// Instrument es el mercado binario contra el que cotiza el engine.
// Se resuelve una vez al arrancar y es inmutable durante toda la ejecución.
type Instrument struct {
	ConditionID string
	Question    string
	Strike      float64
	YesTokenID  string
	NoTokenID   string
	NegRisk     bool
}

// strikePattern matchea un importe en dólares dentro de la question.
// Ej: "Will BTC be above $83,000 at 3:15 PM?" → "83,000"
var strikePattern = regexp.MustCompile(`\$([0-9][0-9,]*(?:\.[0-9]+)?)`)

// ExtractStrike busca el primer importe en dólares dentro de la question.
// Devuelve ErrNoStrike si no hay ninguno.
func ExtractStrike(question string) (float64, error) {
	m := strikePattern.FindStringSubmatch(question)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrNoStrike, question)
	}

	raw := strings.ReplaceAll(m[1], ",", "")
	strike, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: parse %q: %v", ErrNoStrike, raw, err)
	}
	if strike <= 0 {
		return 0, fmt.Errorf("%w: non-positive strike %g", ErrNoStrike, strike)
	}
	return strike, nil
}
