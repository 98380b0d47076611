package service

import (
	"math/rand"

	"github.com/echoease/echoease-go/internal/domain"
)

// CategoryPalette is the fixed 8-color palette new finance categories draw
// from. The pick is random with no collision avoidance.
var CategoryPalette = [8]string{
	"#FF6B6B",
	"#4ECDC4",
	"#45B7D1",
	"#FFA07A",
	"#98D8C8",
	"#F7DC6F",
	"#BB8FCE",
	"#85C1E9",
}

// FallbackColor is used for aggregates whose category definition is missing.
const FallbackColor = "#9E9E9E"

// CategoryResolution is the record router's output: categories that must
// be created before persisting, and the finance items passed through.
type CategoryResolution struct {
	ToCreate []domain.FinanceCategory
	Resolved []domain.FinanceItem
}

// ResolveCategories decides, per finance item, whether its category must
// be created first. Matching is a case-sensitive exact name comparison.
// Categories to create are deduplicated by name within the batch, so the
// same unknown name never produces two creates. Pure function, no I/O.
func ResolveCategories(items []domain.FinanceItem, known []domain.FinanceCategory) CategoryResolution {
	knownNames := make(map[string]struct{}, len(known))
	for _, cat := range known {
		knownNames[cat.Name] = struct{}{}
	}

	resolution := CategoryResolution{
		ToCreate: []domain.FinanceCategory{},
		Resolved: make([]domain.FinanceItem, 0, len(items)),
	}

	marked := make(map[string]struct{})
	for _, item := range items {
		if _, ok := knownNames[item.Category]; !ok {
			if _, seen := marked[item.Category]; !seen {
				marked[item.Category] = struct{}{}
				resolution.ToCreate = append(resolution.ToCreate, domain.FinanceCategory{
					Name:  item.Category,
					Color: CategoryPalette[rand.Intn(len(CategoryPalette))],
				})
			}
		}
		resolution.Resolved = append(resolution.Resolved, item)
	}

	return resolution
}
