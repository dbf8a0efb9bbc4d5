package customize

import (
	"fmt"
	"strings"

	"github.com/twinpizza/backend-orders/internal/catalog"
)

// AddOn is one resolved priced selection. Unresolved add-ons carry the raw id
// as name and a zero price so totals stay auditable; they are never dropped.
type AddOn struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Group      string `json:"group"`
	Price      int64  `json:"price"`
	Unresolved bool   `json:"unresolved,omitempty"`
}

// Resolved is the flat, render-ready form of a customization. The checkout
// cart and the kitchen ticket both consume Summary so they always agree.
type Resolved struct {
	AddOns []AddOn `json:"addOns"`
	// AddOnTotal is the sum of all add-on prices, supplements included.
	AddOnTotal int64 `json:"addOnTotal"`
	// SupplementsTotal is tracked separately because the pizza bundle
	// promotion never discounts supplements.
	SupplementsTotal int64  `json:"supplementsTotal"`
	Summary          string `json:"summary"`
}

// Resolve flattens a customization against the option catalogs. It is a pure
// function: the same payload and catalog always produce byte-identical
// output. A nil customization resolves to an empty result.
func Resolve(c *Customization, category catalog.Category, opts catalog.Options, menuPrices map[string]int64) Resolved {
	if c == nil {
		return Resolved{}
	}

	var out Resolved
	var parts []string

	if c.Size != "" {
		parts = append(parts, titleCase(c.Size))
	}
	if category == catalog.CategoryPizza && c.Base != "" {
		parts = append(parts, baseLabel(c.Base))
	}
	if c.LunchMenu {
		parts = append(parts, "Menu Midi")
	}

	groups := []struct {
		name string
		ids  []string
		set  catalog.OptionSet
	}{
		{"meats", c.meatIDs(), opts.Meats},
		{"sauces", c.sauceIDs(), opts.Sauces},
		{"garnishes", c.garnishIDs(), opts.Garnishes},
		{"supplements", c.Supplements, opts.Supplements},
	}
	for _, g := range groups {
		if len(g.ids) == 0 {
			continue
		}
		var names []string
		for _, id := range g.ids {
			add := resolveOne(id, g.name, g.set)
			out.AddOns = append(out.AddOns, add)
			out.AddOnTotal += add.Price
			if g.name == "supplements" {
				out.SupplementsTotal += add.Price
				names = append(names, fmt.Sprintf("+%s (%s)", add.Name, formatEUR(add.Price)))
				continue
			}
			names = append(names, add.Name)
		}
		parts = append(parts, strings.Join(names, ", "))
	}

	if opt := c.menuOption(); opt != MenuNone {
		price := menuPrices[opt]
		out.AddOns = append(out.AddOns, AddOn{ID: opt, Name: menuLabel(opt), Group: "menu", Price: price})
		out.AddOnTotal += price
		parts = append(parts, menuLabel(opt))
	}

	if note := strings.TrimSpace(c.Note); note != "" {
		parts = append(parts, fmt.Sprintf("« %s »", note))
	}

	out.Summary = strings.Join(parts, " • ")
	return out
}

func resolveOne(id, group string, set catalog.OptionSet) AddOn {
	if opt, ok := set.Lookup(id); ok {
		return AddOn{ID: opt.ID, Name: opt.Name, Group: group, Price: opt.Price}
	}
	return AddOn{ID: id, Name: id, Group: group, Unresolved: true}
}

func baseLabel(base string) string {
	switch base {
	case "creme":
		return "Base crème"
	case "tomate":
		return "Base tomate"
	}
	return "Base " + base
}

func menuLabel(opt string) string {
	switch opt {
	case MenuSide:
		return "Frites"
	case MenuDrink:
		return "Boisson"
	case MenuFull:
		return "Menu frites + boisson"
	}
	return opt
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatEUR(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d€", sign, cents/100, cents%100)
}
