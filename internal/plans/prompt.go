package plans

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultSystemPrompt frames every drafting request.
const DefaultSystemPrompt = "Genera un plan nutricional basado en los datos del usuario."

// PatientProfile is the patient data a default prompt is assembled from.
type PatientProfile struct {
	Name          string
	WeightKg      *float64
	HeightCm      *float64
	Pathologies   []string
	Allergies     []string
	ShortTermGoal string
}

// DefaultPrompt builds the editable prompt offered for a patient. Missing data is spelled
// out as "no especificado" so the model does not invent it.
func DefaultPrompt(p PatientProfile) string {
	weight := "no especificado"
	if p.WeightKg != nil {
		weight = strconv.FormatFloat(*p.WeightKg, 'f', -1, 64)
	}
	height := "no especificada"
	if p.HeightCm != nil {
		height = fmt.Sprintf("%.2f", *p.HeightCm/100)
	}
	goal := strings.TrimSpace(p.ShortTermGoal)
	if goal == "" {
		goal = "no especificado"
	}

	return fmt.Sprintf(
		"Genera un plan nutricional personalizado para el paciente %s con un peso de %s kg y una altura de %s m. "+
			"Patologías: %s. Alergias: %s. Objetivo: %s. "+
			"Proporciona opciones para desayuno, comida, cena y snacks.",
		strings.TrimSpace(p.Name), weight, height,
		joinOr(p.Pathologies, "no especificadas"),
		joinOr(p.Allergies, "no especificadas"),
		goal,
	)
}

func joinOr(items []string, empty string) string {
	kept := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		return empty
	}
	return strings.Join(kept, ", ")
}
