package polymarket

import (
	"encoding/json"
	"strings"

	"github.com/alejandrodnm/makerbot/internal/domain"
)

// mapGammaMarket convierte un gammaMarket DTO a domain.Instrument.
// El strike queda en cero — lo extrae el selector, que es quien decide si un
// mercado sin strike parseable es un error fatal.
// ok es false si el mercado no trae sus dos token IDs.
func mapGammaMarket(gm gammaMarket) (domain.Instrument, bool) {
	tokenIDs := decodeStringArray(gm.ClobTokenIDs)
	if len(tokenIDs) < 2 {
		return domain.Instrument{}, false
	}

	inst := domain.Instrument{
		ConditionID: gm.ConditionID,
		Question:    gm.Question,
		YesTokenID:  tokenIDs[0],
		NoTokenID:   tokenIDs[1],
		NegRisk:     gm.NegRisk,
	}

	// Si Gamma reporta outcomes en otro orden, respetarlo
	outcomes := decodeStringArray(gm.Outcomes)
	if len(outcomes) >= 2 && strings.EqualFold(outcomes[1], "yes") {
		inst.YesTokenID, inst.NoTokenID = tokenIDs[1], tokenIDs[0]
	}

	return inst, true
}

// decodeStringArray parsea los arrays que Gamma codifica como string JSON,
// ej. `["a","b"]`. Devuelve nil si el campo está vacío o malformado.
func decodeStringArray(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
