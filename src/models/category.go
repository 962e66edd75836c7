package models

// Spending category labels. The set is fixed: the classifier only ever
// returns one of these, and the frontend keys icons/colors off the names.
const (
	CategoryFood           = "Food"
	CategoryTransportation = "Transportation"
	CategoryShopping       = "Shopping"
	CategoryEntertainment  = "Entertainment"
	CategoryUtilities      = "Utilities"
	CategoryHealthcare     = "Healthcare"
	CategoryTravel         = "Travel"
	CategoryEducation      = "Education"
	CategoryGroceries      = "Groceries"
	CategoryCoffee         = "Coffee"
	CategorySubscriptions  = "Subscriptions"
	CategoryUncategorized  = "Uncategorized"
)

// CategoryNames lists every category in display order.
var CategoryNames = []string{
	CategoryFood,
	CategoryTransportation,
	CategoryShopping,
	CategoryEntertainment,
	CategoryUtilities,
	CategoryHealthcare,
	CategoryTravel,
	CategoryEducation,
	CategoryGroceries,
	CategoryCoffee,
	CategorySubscriptions,
	CategoryUncategorized,
}

// IsValidCategory reports whether name is a known category label.
func IsValidCategory(name string) bool {
	for _, n := range CategoryNames {
		if n == name {
			return true
		}
	}
	return false
}
