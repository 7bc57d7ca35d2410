package normalize

import "strings"

// categoryKeywords drive the fallback detector used when a provider supplies
// no taxonomy. First match in declaration order wins.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"electronics", []string{
		"iphone", "ipad", "macbook", "laptop", "phone", "tablet", "tv", "television",
		"camera", "headphones", "speaker", "console", "playstation", "xbox", "nintendo",
		"gpu", "monitor", "drone", "gaming",
	}},
	{"furniture", []string{
		"couch", "sofa", "table", "chair", "desk", "dresser", "bookshelf", "cabinet",
		"bed frame", "mattress", "nightstand",
	}},
	{"appliances", []string{
		"refrigerator", "fridge", "washer", "dryer", "dishwasher", "microwave",
		"oven", "blender", "vacuum",
	}},
	{"tools", []string{
		"drill", "saw", "sander", "wrench", "toolbox", "dewalt", "makita", "milwaukee",
		"power tool",
	}},
	{"sporting", []string{
		"bike", "bicycle", "kayak", "golf", "treadmill", "dumbbell", "weights",
		"snowboard", "skis", "surfboard",
	}},
	{"clothing", []string{
		"jacket", "shoes", "sneakers", "boots", "jordan", "dress", "jeans", "hoodie",
		"coat",
	}},
	{"collectibles", []string{
		"vintage", "antique", "rare", "card", "pokemon", "comic", "vinyl", "record",
		"figurine", "coin",
	}},
	{"toys", []string{
		"lego", "doll", "action figure", "board game", "puzzle", "rc car",
	}},
}

// providerCategoryAliases collapse provider taxonomy labels onto the
// pipeline's compact category set.
var providerCategoryAliases = map[string]string{
	"cell phones & accessories": "electronics",
	"computers/tablets & networking": "electronics",
	"consumer electronics":      "electronics",
	"video games & consoles":    "electronics",
	"home & garden":             "furniture",
	"sporting goods":            "sporting",
	"toys & hobbies":            "toys",
	"clothing, shoes & accessories": "clothing",
}

// DetectCategory prefers the provider's taxonomy and falls back to keyword
// detection over title+description. Returns "general" when nothing matches.
func DetectCategory(providerCategory, title, description string) string {
	if cat := strings.ToLower(strings.TrimSpace(providerCategory)); cat != "" {
		if alias, ok := providerCategoryAliases[cat]; ok {
			return alias
		}
		return cat
	}

	text := strings.ToLower(title + " " + description)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.category
			}
		}
	}

	return "general"
}

// knownBrands is the brand list scanned in titles and descriptions.
var knownBrands = []string{
	"Apple", "Samsung", "Sony", "Nintendo", "Microsoft", "Dell", "HP", "Lenovo",
	"Bose", "Canon", "Nikon", "GoPro", "Dyson", "KitchenAid", "DeWalt", "Makita",
	"Milwaukee", "Nike", "Adidas", "Patagonia", "North Face", "Lego",
}

// DetectBrand finds the first known brand mentioned in the title, falling
// back to the description. Returns empty when no brand is recognized.
func DetectBrand(title, description string) string {
	lowerTitle := strings.ToLower(title)
	for _, brand := range knownBrands {
		if strings.Contains(lowerTitle, strings.ToLower(brand)) {
			return brand
		}
	}
	lowerDesc := strings.ToLower(description)
	for _, brand := range knownBrands {
		if strings.Contains(lowerDesc, strings.ToLower(brand)) {
			return brand
		}
	}
	return ""
}
