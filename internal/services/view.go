package services

import (
	"sort"

	"deal-finder-api/internal/models"
	"deal-finder-api/pkg/utils"
)

// View is the read-only projection of a result set under a selection.
type View struct {
	Platforms []string
	BestDeal  *models.Deal
	Displayed []models.DealCard
}

// AvailablePlatforms returns "All" followed by the distinct platforms in deals,
// alphabetically. An empty result set has no options at all.
func AvailablePlatforms(deals []models.Deal) []string {
	if len(deals) == 0 {
		return []string{}
	}

	seen := make(map[models.Platform]bool)
	platforms := make([]string, 0, len(deals))
	for _, d := range deals {
		if !seen[d.Platform] {
			seen[d.Platform] = true
			platforms = append(platforms, string(d.Platform))
		}
	}
	sort.Strings(platforms)

	return append([]string{models.AllPlatforms}, platforms...)
}

// AbsoluteBestDeal returns the cheapest deal in the full result set. The
// leftmost deal wins a tie.
func AbsoluteBestDeal(deals []models.Deal) (models.Deal, bool) {
	if len(deals) == 0 {
		return models.Deal{}, false
	}

	best := deals[0]
	for _, d := range deals[1:] {
		if d.Price < best.Price {
			best = d
		}
	}
	return best, true
}

// DisplayedDeals filters deals by platform and orders them by the selected
// sort key. The input slice is not modified.
func DisplayedDeals(deals []models.Deal, sel models.Selection) []models.Deal {
	filtered := make([]models.Deal, 0, len(deals))
	for _, d := range deals {
		if sel.Platform != models.AllPlatforms && string(d.Platform) != sel.Platform {
			continue
		}
		filtered = append(filtered, d)
	}

	switch sel.Sort {
	case models.SortPriceAsc:
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].Price < filtered[j].Price
		})
	case models.SortPriceDesc:
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].Price > filtered[j].Price
		})
	case models.SortRatingDesc:
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].Rating > filtered[j].Rating
		})
	}

	return filtered
}

// Project computes every derived view for deals under sel. A nil result set
// yields no displayed deals.
func Project(deals []models.Deal, sel models.Selection) View {
	view := View{Platforms: AvailablePlatforms(deals)}
	if deals == nil {
		return view
	}

	best, ok := AbsoluteBestDeal(deals)
	if ok {
		view.BestDeal = &best
	}

	displayed := DisplayedDeals(deals, sel)
	view.Displayed = make([]models.DealCard, 0, len(displayed))
	for _, d := range displayed {
		view.Displayed = append(view.Displayed, models.DealCard{
			Deal:        d,
			PriceLabel:  utils.FormatINR(d.Price),
			RatingLabel: utils.FormatRating(d.Rating),
			IsBestDeal:  ok && d.ID == best.ID,
		})
	}

	return view
}
