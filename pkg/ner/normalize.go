package ner

import "github.com/reportlens-ai/analyzer/pkg/common/models"

// Normalize adapts the model's output shape into the canonical entity
// record: word becomes text, entity_group becomes label, everything
// else (score, offsets) is dropped. Every record passes through, in
// order, with no deduplication or thresholding.
func Normalize(raw []RawEntity) []models.Entity {
	entities := make([]models.Entity, 0, len(raw))
	for _, r := range raw {
		entities = append(entities, models.Entity{
			Text:  r.Word,
			Label: r.EntityGroup,
		})
	}
	return entities
}
