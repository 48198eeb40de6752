package usecase

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cartwise/backend/internal/domain"
)

// Confidence bands. Exact explicit matches land at the top band, strong
// pattern inference below it, plausible-but-ambiguous resolutions in the
// 0.60-0.79 band. Anything that would score below 0.60 is returned as a
// status "error" instead.
const (
	confidenceExact     = 0.98
	confidenceStrong    = 0.88
	confidenceAmbiguous = 0.70
	confidenceInferred  = 0.65

	// learnThresholdDefault gates promotion into the learned deterministic
	// mapping. Below-threshold resolutions are returned for immediate use but
	// never memoized.
	learnThresholdDefault = 0.75
)

// unitAliases maps every recognized spelling to its canonical unit label.
var unitAliases = map[string]string{
	"oz": "oz", "oz.": "oz", "ounce": "oz", "ounces": "oz",
	"lb": "lb", "lb.": "lb", "lbs": "lb", "pound": "lb", "pounds": "lb",
	"g": "g", "gram": "g", "grams": "g",
	"kg": "kg", "kgs": "kg", "kilogram": "kg", "kilograms": "kg",
	"fl oz": "fl oz", "fl. oz": "fl oz", "floz": "fl oz", "fluid ounce": "fl oz", "fluid ounces": "fl oz",
	"ml": "ml", "milliliter": "ml", "milliliters": "ml",
	"l": "l", "liter": "l", "liters": "l", "litre": "l", "litres": "l",
	"gal": "gal", "gallon": "gal", "gallons": "gal",
	"qt": "qt", "quart": "qt", "quarts": "qt",
	"pt": "pt", "pint": "pt", "pints": "pt",
	"ct": "ct", "count": "ct", "pk": "ct", "pack": "ct", "packs": "ct",
	"each": "each", "ea": "each",
	"bunch": "bunch", "bunches": "bunch",
	"dozen": "dozen", "dozens": "dozen", "doz": "dozen",
	"tsp": "tsp", "teaspoon": "tsp", "teaspoons": "tsp",
	"tbsp": "tbsp", "tablespoon": "tbsp", "tablespoons": "tbsp",
	"cup": "cup", "cups": "cup",
}

// countUnits are the count-like half of the vocabulary; everything else is a
// weight, volume, or cooking measure.
var countUnits = map[string]bool{
	"ct": true, "each": true, "bunch": true, "dozen": true,
}

// multipackIngredients seed the primary-unit tie-break for multi-unit strings
// like "12 oz / 6 pk": ingredients in this table resolve to the count unit,
// single-item perishables resolve to the weight/volume unit. The table is
// deliberately closed; entries are added only alongside an acceptance case.
var multipackIngredients = []string{
	"soda", "cola", "seltzer", "sparkling water",
	"yogurt", "eggs", "granola bar", "string cheese", "juice box",
}

// recipeUnitHints maps ingredient keywords to the unit a recipe most
// plausibly means when the raw text attests nothing. Only consulted for
// source "recipe"; confidence for these is always capped below 0.80.
var recipeUnitHints = []struct {
	keyword string
	unit    string
}{
	{"cilantro", "bunch"},
	{"parsley", "bunch"},
	{"basil", "bunch"},
	{"scallion", "bunch"},
	{"green onion", "bunch"},
	{"milk", "fl oz"},
	{"juice", "fl oz"},
	{"broth", "fl oz"},
	{"stock", "fl oz"},
	{"oil", "fl oz"},
	{"vinegar", "fl oz"},
	{"egg", "each"},
}

// Compiled once from the alias table: quantity+unit pairs and bare units.
var (
	quantityUnitRegex *regexp.Regexp
	bareUnitRegex     *regexp.Regexp
)

func init() {
	aliases := make([]string, 0, len(unitAliases))
	for alias := range unitAliases {
		aliases = append(aliases, alias)
	}
	// Longest first so "fl oz" wins over "oz" and "lbs" over "lb".
	sort.Slice(aliases, func(i, j int) bool {
		if len(aliases[i]) != len(aliases[j]) {
			return len(aliases[i]) > len(aliases[j])
		}
		return aliases[i] < aliases[j]
	})

	escaped := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		part := regexp.QuoteMeta(alias)
		part = strings.ReplaceAll(part, " ", `\s+`)
		escaped = append(escaped, part)
	}
	alternation := strings.Join(escaped, "|")

	quantityUnitRegex = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*[-]?\s*(` + alternation + `)\b`)
	bareUnitRegex = regexp.MustCompile(`(?i)(?:^|[\s/(])(` + alternation + `)\b`)
}

// StandardizerConfig holds construction parameters for the unit standardizer.
type StandardizerConfig struct {
	// Vocabulary is the externally configured allowed-unit list. Empty falls
	// back to domain.DefaultUnitVocabulary.
	Vocabulary []string
	// LearnThreshold is the minimum confidence for a resolution to be
	// promoted into the learned mapping. Zero falls back to 0.75.
	LearnThreshold float64
}

// UnitStandardizer converts raw quantity/unit text plus product and
// ingredient context into a canonical (unit, quantity, confidence) triple.
// High-confidence resolutions are learned into a deterministic mapping so
// future identical raw text skips the resolver entirely.
type UnitStandardizer struct {
	vocab          map[string]bool
	learnThreshold float64

	mu      sync.RWMutex
	learned map[string]domain.UnitResolution
}

// NewUnitStandardizer creates a standardizer restricted to the given
// vocabulary.
func NewUnitStandardizer(cfg StandardizerConfig) *UnitStandardizer {
	vocabulary := cfg.Vocabulary
	if len(vocabulary) == 0 {
		vocabulary = domain.DefaultUnitVocabulary
	}
	vocab := make(map[string]bool, len(vocabulary))
	for _, u := range vocabulary {
		vocab[u] = true
	}

	threshold := cfg.LearnThreshold
	if threshold <= 0 {
		threshold = learnThresholdDefault
	}

	return &UnitStandardizer{
		vocab:          vocab,
		learnThreshold: threshold,
		learned:        make(map[string]domain.UnitResolution),
	}
}

// unitMatch is one attested (unit, quantity) occurrence in the raw input.
type unitMatch struct {
	unit          string
	quantity      float64
	explicit      bool
	fromUnitField bool
}

// Resolve standardizes one raw product/unit pair.
//
// For source "scraper" the resolved unit must be textually attested in the
// raw input; unattested resolutions are rejected. For source "recipe" a
// contextually plausible unit may be inferred, always below 0.80 confidence.
//
// The learned mapping is keyed by the normalized raw text alone, not by
// ingredient: identical raw text is assumed to describe the same product, so
// a high-confidence resolution replays for any ingredient carrying that text.
func (s *UnitStandardizer) Resolve(rawProductName, rawUnit, ingredientName, source string) domain.UnitResolution {
	rawText := strings.TrimSpace(strings.TrimSpace(rawProductName) + " " + strings.TrimSpace(rawUnit))
	key := learnedKey(rawProductName, rawUnit)

	s.mu.RLock()
	if cached, ok := s.learned[key]; ok {
		s.mu.RUnlock()
		return cached
	}
	s.mu.RUnlock()

	matches := s.collectMatches(rawUnit, true)
	matches = append(matches, s.collectMatches(rawProductName, false)...)

	var resolution domain.UnitResolution
	if len(matches) == 0 {
		resolution = s.resolveUnattested(rawText, ingredientName, source)
	} else {
		resolution = s.resolveAttested(rawText, ingredientName, matches)
	}

	if resolution.Status == domain.ResolutionSuccess && resolution.Confidence >= s.learnThreshold {
		s.mu.Lock()
		s.learned[key] = resolution
		s.mu.Unlock()
	}

	return resolution
}

// LearnedCount reports how many deterministic mappings have been promoted.
func (s *UnitStandardizer) LearnedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.learned)
}

// collectMatches scans one text field for quantity+unit pairs and bare units,
// keeping only units inside the configured vocabulary.
func (s *UnitStandardizer) collectMatches(text string, fromUnitField bool) []unitMatch {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var matches []unitMatch
	for _, m := range quantityUnitRegex.FindAllStringSubmatch(text, -1) {
		unit, ok := s.canonicalUnit(m[2])
		if !ok {
			continue
		}
		qty, err := strconv.ParseFloat(m[1], 64)
		if err != nil || qty <= 0 {
			continue
		}
		matches = append(matches, unitMatch{unit: unit, quantity: qty, explicit: true, fromUnitField: fromUnitField})
	}

	for _, m := range bareUnitRegex.FindAllStringSubmatch(text, -1) {
		unit, ok := s.canonicalUnit(m[1])
		if !ok {
			continue
		}
		matches = append(matches, unitMatch{unit: unit, quantity: 1, fromUnitField: fromUnitField})
	}

	return matches
}

// canonicalUnit maps a matched alias to its canonical label, honoring the
// configured vocabulary. The resolver never emits a unit outside the set.
func (s *UnitStandardizer) canonicalUnit(alias string) (string, bool) {
	normalized := multipleSpacesRegex.ReplaceAllString(strings.ToLower(strings.TrimSpace(alias)), " ")
	unit, ok := unitAliases[normalized]
	if !ok {
		return "", false
	}
	if !s.vocab[unit] {
		return "", false
	}
	return unit, true
}

// resolveAttested picks the primary unit among the attested matches and
// assigns a banded confidence.
func (s *UnitStandardizer) resolveAttested(rawText, ingredientName string, matches []unitMatch) domain.UnitResolution {
	distinct := make(map[string]bool)
	for _, m := range matches {
		distinct[m.unit] = true
	}

	candidates := matches
	if len(distinct) > 1 {
		// Multi-unit string: deterministic tie-break on the ingredient's
		// primary unit category. Count for multi-packs, weight/volume for
		// single-item perishables.
		wantCount := isMultipackIngredient(ingredientName)
		filtered := make([]unitMatch, 0, len(matches))
		for _, m := range matches {
			if countUnits[m.unit] == wantCount {
				filtered = append(filtered, m)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	// Prefer an explicit quantity+unit pair over a bare unit mention.
	chosen := candidates[0]
	for _, m := range candidates {
		if m.explicit && !chosen.explicit {
			chosen = m
		}
	}

	confidence := confidenceAmbiguous
	if chosen.explicit {
		confidence = confidenceStrong
		// Exact band when the unit is corroborated by the dedicated unit field.
		for _, m := range matches {
			if m.fromUnitField && m.unit == chosen.unit {
				confidence = confidenceExact
				break
			}
		}
		if chosen.fromUnitField {
			confidence = confidenceExact
		}
	}

	return domain.UnitResolution{
		RawText:          rawText,
		ResolvedUnit:     chosen.unit,
		ResolvedQuantity: chosen.quantity,
		Confidence:       confidence,
		Status:           domain.ResolutionSuccess,
	}
}

// resolveUnattested handles input with no recognizable unit text. Recipes may
// fall back to a contextual inference (capped below 0.80); scraper input must
// be rejected rather than guessed.
func (s *UnitStandardizer) resolveUnattested(rawText, ingredientName, source string) domain.UnitResolution {
	if source == domain.SourceRecipe {
		if unit, ok := s.inferRecipeUnit(ingredientName); ok {
			return domain.UnitResolution{
				RawText:          rawText,
				ResolvedUnit:     unit,
				ResolvedQuantity: 1,
				Confidence:       confidenceInferred,
				Status:           domain.ResolutionSuccess,
			}
		}
	}

	return domain.UnitResolution{
		RawText: rawText,
		Status:  domain.ResolutionError,
	}
}

// inferRecipeUnit returns a plausible unit for an ingredient from the hint
// table, restricted to the configured vocabulary.
func (s *UnitStandardizer) inferRecipeUnit(ingredientName string) (string, bool) {
	name := strings.ToLower(ingredientName)
	for _, hint := range recipeUnitHints {
		if strings.Contains(name, hint.keyword) && s.vocab[hint.unit] {
			return hint.unit, true
		}
	}
	if s.vocab["each"] {
		return "each", true
	}
	return "", false
}

// isMultipackIngredient reports whether the ingredient's category makes the
// count unit primary.
func isMultipackIngredient(ingredientName string) bool {
	name := strings.ToLower(ingredientName)
	for _, keyword := range multipackIngredients {
		if strings.Contains(name, keyword) {
			return true
		}
	}
	return false
}

// learnedKey normalizes raw input into the learned-mapping key.
func learnedKey(rawProductName, rawUnit string) string {
	name := multipleSpacesRegex.ReplaceAllString(strings.ToLower(strings.TrimSpace(rawProductName)), " ")
	unit := multipleSpacesRegex.ReplaceAllString(strings.ToLower(strings.TrimSpace(rawUnit)), " ")
	return fmt.Sprintf("%s|%s", name, unit)
}
