// Package report turns an assembled context into a structured narrative,
// falling back to a deterministic report when the narrative model fails.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/couchcryptid/geocontext-service/internal/domain"
)

// Temperature is the sampling temperature used for narrative requests.
const Temperature = 0.2

// UnnamedPlace stands in for a missing place name in the prompt.
const UnnamedPlace = "(sin nombre)"

const systemPrompt = `Eres un analista territorial. Responde siempre en espanol.
Usa exclusivamente los datos del contexto proporcionado; no inventes lugares, cifras ni fuentes.
Si falta algun dato, indicalo en "limitaciones" en lugar de suponerlo.
Devuelve un unico objeto JSON valido, sin texto adicional, con exactamente estos campos:
"descripcion_zona" (texto), "infraestructura_cercana" (texto), "riesgos" (texto),
"usos_urbanos" (texto), "recomendacion_final" (texto), "fuentes" (lista de textos),
"limitaciones" (lista de textos). Ningun texto puede estar vacio.`

// BuildMessages returns the system and user messages for a context. The
// output depends only on its inputs.
func BuildMessages(data domain.ContextData, placeName *string) ([]domain.NarrativeMessage, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal context: %w", err)
	}

	name := UnnamedPlace
	if placeName != nil && strings.TrimSpace(*placeName) != "" {
		name = strings.TrimSpace(*placeName)
	}

	user := fmt.Sprintf("Lugar: %s\nContexto (JSON):\n%s", name, payload)
	return []domain.NarrativeMessage{
		{Role: domain.RoleSystem, Content: systemPrompt},
		{Role: domain.RoleUser, Content: user},
	}, nil
}
