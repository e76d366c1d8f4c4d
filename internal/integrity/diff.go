package integrity

import (
	"fmt"

	"bnpl-gateway/internal/model"
)

// ItemDiff describes how the live cart's lines differ from the quoted lines.
// Lines are matched by SKU, or by name when the SKU is empty.
type ItemDiff struct {
	Added   []model.LineItem // in cart, not quoted
	Removed []model.LineItem // quoted, no longer in cart
	Changed []ItemChange     // in both, different quantity or price
}

// ItemChange is one line present on both sides with different values.
type ItemChange struct {
	Quoted model.LineItem
	Live   model.LineItem
}

// IsEmpty reports whether the lines match up, ignoring order.
func (d *ItemDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// DiffItems matches live lines against quoted lines. Output order follows
// the input slices so the result is deterministic.
func DiffItems(live, quoted []model.LineItem) *ItemDiff {
	diff := &ItemDiff{}

	quotedByKey := make(map[string]model.LineItem, len(quoted))
	for _, item := range quoted {
		quotedByKey[lineKey(item)] = item
	}
	liveByKey := make(map[string]model.LineItem, len(live))
	for _, item := range live {
		liveByKey[lineKey(item)] = item
	}

	for _, item := range live {
		q, exists := quotedByKey[lineKey(item)]
		if !exists {
			diff.Added = append(diff.Added, item)
			continue
		}
		if q.Quantity != item.Quantity || !q.Price.Equal(item.Price) || q.Name != item.Name {
			diff.Changed = append(diff.Changed, ItemChange{Quoted: q, Live: item})
		}
	}
	for _, item := range quoted {
		if _, exists := liveByKey[lineKey(item)]; !exists {
			diff.Removed = append(diff.Removed, item)
		}
	}
	return diff
}

func lineKey(item model.LineItem) string {
	if item.SKU != "" {
		return "sku:" + item.SKU
	}
	return "name:" + item.Name
}

func describeItemChanges(live, quoted []model.LineItem) []string {
	diff := DiffItems(live, quoted)
	if diff.IsEmpty() {
		return []string{"line order changed"}
	}

	var out []string
	for _, item := range diff.Added {
		out = append(out, fmt.Sprintf("%s added", label(item)))
	}
	for _, item := range diff.Removed {
		out = append(out, fmt.Sprintf("%s removed", label(item)))
	}
	for _, c := range diff.Changed {
		if c.Quoted.Quantity != c.Live.Quantity {
			out = append(out, fmt.Sprintf("%s quantity changed from %d to %d", label(c.Live), c.Quoted.Quantity, c.Live.Quantity))
		}
		if !c.Quoted.Price.Equal(c.Live.Price) {
			out = append(out, fmt.Sprintf("%s price changed from %s to %s", label(c.Live), formatMoney(c.Quoted.Price), formatMoney(c.Live.Price)))
		}
		if c.Quoted.Name != c.Live.Name {
			out = append(out, fmt.Sprintf("%s renamed from %q", label(c.Live), c.Quoted.Name))
		}
	}
	return out
}

func label(item model.LineItem) string {
	if item.SKU != "" {
		return fmt.Sprintf("%q (%s)", item.Name, item.SKU)
	}
	return fmt.Sprintf("%q", item.Name)
}

// describeDiscountChanges is a set difference on display names plus amount changes.
func describeDiscountChanges(live, quoted []model.Discount) []string {
	quotedByName := make(map[string]model.Discount, len(quoted))
	for _, d := range quoted {
		quotedByName[d.DisplayName] = d
	}
	liveByName := make(map[string]model.Discount, len(live))
	for _, d := range live {
		liveByName[d.DisplayName] = d
	}

	var out []string
	for _, d := range live {
		q, exists := quotedByName[d.DisplayName]
		switch {
		case !exists:
			out = append(out, fmt.Sprintf("coupon %q applied", d.DisplayName))
		case !q.Amount.Equal(d.Amount):
			out = append(out, fmt.Sprintf("coupon %q changed from %s to %s", d.DisplayName, formatMoney(q.Amount), formatMoney(d.Amount)))
		}
	}
	for _, d := range quoted {
		if _, exists := liveByName[d.DisplayName]; !exists {
			out = append(out, fmt.Sprintf("coupon %q removed", d.DisplayName))
		}
	}
	if len(out) == 0 {
		out = []string{"coupon order changed"}
	}
	return out
}
