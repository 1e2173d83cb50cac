package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/brightloom/billing_api/internal/models"
)

// OrganizeCatalog transforms the raw product and price lists fetched from the
// billing provider into the denormalized plan list the API serves, plus a
// planId -> prices index for O(1) price lookups. It is a pure pass: no
// network, no dependency on prior cache state, deterministic for a given
// input.
//
// One active plan is produced per active product. Inactive products and
// prices are skipped. A malformed features metadata value fails the whole
// pass so a partially organized catalog is never published.
func OrganizeCatalog(products []models.RawProduct, prices []models.RawPrice) ([]models.Plan, map[string]map[string]models.PriceVariant, error) {
	plans := make([]models.Plan, 0, len(products))
	index := make(map[string]map[string]models.PriceVariant, len(products))

	for _, p := range products {
		if !p.Active {
			continue
		}

		features, err := parseFeatures(p)
		if err != nil {
			return nil, nil, err
		}

		plan := models.Plan{
			PlanID:       DerivePlanID(p),
			ProductID:    p.ID,
			Name:         p.Name,
			Description:  p.Description,
			PlanType:     planType(p),
			DisplayOrder: ParseDisplayOrder(p.Metadata["display_order"]),
			Features:     features,
			Prices:       make(map[string]models.PriceVariant),
		}

		for _, pr := range prices {
			if !pr.Active || pr.ProductID != p.ID {
				continue
			}
			// Two active prices on the same cycle: the later one in
			// iteration order wins.
			plan.Prices[CycleForPrice(pr)] = priceVariant(pr)
		}

		plans = append(plans, plan)
		// Colliding plan IDs overwrite each other here, last write wins.
		index[plan.PlanID] = plan.Prices
	}

	// Stable sort keeps provider iteration order on equal display orders.
	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].DisplayOrder < plans[j].DisplayOrder
	})

	return plans, index, nil
}

// DerivePlanID returns the plan identifier for a product: the plan_id
// metadata value when present, otherwise the product name lowercased with
// whitespace runs replaced by hyphens.
func DerivePlanID(p models.RawProduct) string {
	if id := p.Metadata["plan_id"]; id != "" {
		return id
	}
	return strings.Join(strings.Fields(strings.ToLower(p.Name)), "-")
}

// ParseDisplayOrder parses a display_order metadata value. Absent or
// non-numeric values default to DefaultDisplayOrder so the plan sorts last.
func ParseDisplayOrder(raw string) int {
	if raw == "" {
		return models.DefaultDisplayOrder
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return models.DefaultDisplayOrder
	}
	return n
}

// CycleForPrice maps a price onto its billing cycle key. Non-recurring
// prices are one_time. Recurring monthly prices are monthly; any other
// recurring interval folds to yearly.
func CycleForPrice(p models.RawPrice) string {
	if p.Recurring == nil {
		return models.CycleOneTime
	}
	if p.Recurring.Interval == "month" {
		return models.CycleMonthly
	}
	return models.CycleYearly
}

// planType returns the plan_type metadata value, defaulting to subscription.
func planType(p models.RawProduct) string {
	if t := p.Metadata["plan_type"]; t != "" {
		return t
	}
	return "subscription"
}

// parseFeatures decodes the features metadata value as a JSON string array.
// A product without the key gets an empty list; malformed JSON is an error.
func parseFeatures(p models.RawProduct) ([]string, error) {
	raw := p.Metadata["features"]
	if raw == "" {
		return []string{}, nil
	}
	var features []string
	if err := json.Unmarshal([]byte(raw), &features); err != nil {
		return nil, fmt.Errorf("product %s: invalid features metadata: %w", p.ID, err)
	}
	return features, nil
}

// priceVariant converts a raw price into the variant stored on a plan.
func priceVariant(p models.RawPrice) models.PriceVariant {
	v := models.PriceVariant{
		PriceID:    p.ID,
		UnitAmount: p.UnitAmount,
		Currency:   p.Currency,
	}
	if p.Recurring != nil {
		v.Interval = p.Recurring.Interval
		v.IntervalCount = p.Recurring.IntervalCount
	}
	return v
}
