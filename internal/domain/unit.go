package domain

// Resolution sources. Scraper resolutions must be textually attested in the
// raw input; recipe resolutions may be inferred from context with capped
// confidence.
const (
	SourceScraper = "scraper"
	SourceRecipe  = "recipe"
)

// Resolution statuses.
const (
	ResolutionSuccess = "success"
	ResolutionError   = "error"
)

// UnitResolution is the result of standardizing a raw quantity/unit string.
// Confidence is calibrated into bands: 0.95-1.00 exact explicit match,
// 0.80-0.94 strong pattern inference, 0.60-0.79 plausible but ambiguous.
// Anything that would land below 0.60 is returned as a status "error" instead
// of a low-confidence guess.
type UnitResolution struct {
	RawText          string  `json:"rawText"`
	ResolvedUnit     string  `json:"resolvedUnit,omitempty"`
	ResolvedQuantity float64 `json:"resolvedQuantity,omitempty"`
	Confidence       float64 `json:"confidence"`
	Status           string  `json:"status"`
}

// DefaultUnitVocabulary is the fixed set of unit labels the standardizer is
// allowed to emit. The resolver never invents units outside the configured set.
var DefaultUnitVocabulary = []string{
	"oz", "lb", "g", "kg",
	"fl oz", "ml", "l", "gal", "qt", "pt",
	"ct", "each", "bunch", "dozen",
	"tsp", "tbsp", "cup",
}
