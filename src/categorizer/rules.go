package categorizer

import "github.com/username/expensio/backend/src/models"

// defaultRules is the built-in rule table. Order matters: first match wins.
// Patterns are lowercase; matching is done against the case-folded
// name+merchant text. Add new rules here (or ship a YAML override via
// CATEGORY_RULES_PATH) rather than touching the evaluation loop.
var defaultRules = []Rule{
	{Patterns: []string{"starbucks", "coffee", "dunkin", "peet", "philz", "espresso"}, Category: models.CategoryCoffee},
	{Patterns: []string{"uber eats", "doordash", "grubhub", "postmates", "instacart", "seamless"}, Category: models.CategoryFood},
	{Patterns: []string{"uber", "lyft", "taxi", "metro", "subway", "train", "parking", "toll", "gas station", "chevron", "shell", "exxon", "bp"}, Category: models.CategoryTransportation},
	{Patterns: []string{"amazon", "walmart", "target", "costco", "best buy", "ebay", "etsy"}, Category: models.CategoryShopping},
	{Patterns: []string{"whole foods", "trader joe", "safeway", "kroger", "publix", "aldi", "grocery"}, Category: models.CategoryGroceries},
	{Patterns: []string{"netflix", "spotify", "hulu", "disney", "apple tv", "youtube premium", "hbo", "prime video"}, Category: models.CategorySubscriptions},
	{Patterns: []string{"movie", "cinema", "amc", "regal", "theater", "concert", "ticketmaster", "steam", "playstation"}, Category: models.CategoryEntertainment},
	{Patterns: []string{"electric", "water bill", "gas bill", "internet", "comcast", "at&t", "verizon", "phone bill"}, Category: models.CategoryUtilities},
	{Patterns: []string{"doctor", "hospital", "pharmacy", "walgreens", "cvs", "medical", "dental"}, Category: models.CategoryHealthcare},
	{Patterns: []string{"airline", "airbnb", "hotel", "marriott", "hilton", "united", "delta", "southwest", "expedia"}, Category: models.CategoryTravel},
	{Patterns: []string{"udemy", "coursera", "tuition", "university", "college"}, Category: models.CategoryEducation},
	{Patterns: []string{"restaurant", "diner", "burger", "pizza", "sushi", "taco", "grill", "bistro", "kitchen"}, Category: models.CategoryFood},
}

// defaultHintMappings translates Plaid's coarse category hints when no rule
// matched. Evaluated in order; hints are matched case-insensitively as
// substrings of the joined hint list.
var defaultHintMappings = []HintMapping{
	{Hints: []string{"food"}, Category: models.CategoryFood},
	{Hints: []string{"travel"}, Category: models.CategoryTravel},
	{Hints: []string{"shops", "shopping"}, Category: models.CategoryShopping},
	{Hints: []string{"recreation", "entertainment"}, Category: models.CategoryEntertainment},
	{Hints: []string{"healthcare", "medical"}, Category: models.CategoryHealthcare},
	{Hints: []string{"service", "utilities"}, Category: models.CategoryUtilities},
}
