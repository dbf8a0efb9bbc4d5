package customize

// Customization is the polymorphic payload attached to a line item. Two wire
// shapes coexist: the current one (meats/sauces/garnitures/supplements
// arrays) and the legacy one (single meat/sauce/side strings plus a toppings
// array). Every field is optional; the resolver pattern-matches on whichever
// subset is present instead of assuming one canonical shape.
type Customization struct {
	Size      string `json:"size,omitempty"`
	Base      string `json:"base,omitempty"`
	LunchMenu bool   `json:"lunchMenu,omitempty"`

	Meats       []string `json:"meats,omitempty"`
	Sauces      []string `json:"sauces,omitempty"`
	Garnishes   []string `json:"garnitures,omitempty"`
	Supplements []string `json:"supplements,omitempty"`

	// Legacy shape. Current-shape fields take precedence per concern when
	// both are present.
	Meat     string   `json:"meat,omitempty"`
	Sauce    string   `json:"sauce,omitempty"`
	Side     string   `json:"side,omitempty"`
	Toppings []string `json:"toppings,omitempty"`

	MenuBundleOption string `json:"menuBundleOption,omitempty"`
	Note             string `json:"note,omitempty"`
}

// MenuBundleOption values.
const (
	MenuNone  = "none"
	MenuSide  = "side"
	MenuDrink = "drink"
	MenuFull  = "full"
)

// meatIDs returns the effective meat selection after shape normalization.
func (c *Customization) meatIDs() []string {
	if len(c.Meats) > 0 {
		return c.Meats
	}
	if c.Meat != "" {
		return []string{c.Meat}
	}
	return nil
}

func (c *Customization) sauceIDs() []string {
	if len(c.Sauces) > 0 {
		return c.Sauces
	}
	if c.Sauce != "" {
		return []string{c.Sauce}
	}
	return nil
}

// garnishIDs folds the legacy toppings array into the garnish concern.
func (c *Customization) garnishIDs() []string {
	if len(c.Garnishes) > 0 {
		return c.Garnishes
	}
	return c.Toppings
}

// menuOption normalizes the bundle option. The legacy "side" string field
// counts as a side bundle when no explicit option is set.
func (c *Customization) menuOption() string {
	if c.MenuBundleOption != "" {
		return c.MenuBundleOption
	}
	if c.Side != "" {
		return MenuSide
	}
	return MenuNone
}
