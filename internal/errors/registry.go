package errors

// Template defines a registered error type.
type Template struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// Configuration (H001-H009)
	"H001": {
		Category:   CategoryConfig,
		Message:    "Config file unreadable",
		Suggestion: "Check the path passed to --config, or run 'hashpage init' to create one",
	},
	"H002": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
	},
	"H003": {
		Category:   CategoryConfig,
		Message:    "Unsupported store",
		Suggestion: "Use memory, badger:DIR or sqlite:FILE",
	},
	"H004": {
		Category:   CategoryConfig,
		Message:    "Unsupported source",
		Suggestion: "Use a directory, http(s)://host/path, s3://bucket/prefix or gs://bucket/prefix",
	},
	"H005": {
		Category:   CategoryConfig,
		Message:    "Config file already exists",
		Suggestion: "Pass --force to overwrite it",
	},

	// Storage (H010-H019)
	"H010": {
		Category: CategoryStorage,
		Message:  "Store open failed",
	},
	"H011": {
		Category: CategoryStorage,
		Message:  "Store operation failed",
	},

	// Fetch (H020-H029)
	"H020": {
		Category: CategoryFetch,
		Message:  "Source open failed",
	},
	"H021": {
		Category:   CategoryFetch,
		Message:    "Fragment not found",
		Suggestion: "Check the pages directory and the notfound view",
	},
	"H022": {
		Category:   CategoryFetch,
		Message:    "Invalid fragment",
		Suggestion: "A fragment needs a <template> element holding its body",
	},

	// Widgets (H030-H039)
	"H030": {
		Category: CategoryWidget,
		Message:  "Module already registered",
	},
	"H031": {
		Category: CategoryWidget,
		Message:  "Invalid widget reference",
	},

	// Bridge (H040-H049)
	"H040": {
		Category: CategoryBridge,
		Message:  "Bridge upgrade failed",
	},
	"H041": {
		Category: CategoryBridge,
		Message:  "Bridge frame invalid",
	},

	// CLI (H050-H059)
	"H050": {
		Category:   CategoryCLI,
		Message:    "Render timed out",
		Suggestion: "Raise --timeout or check that every widget loads",
	},
	"H051": {
		Category: CategoryCLI,
		Message:  "Server failed",
	},
}

// Lookup returns the template for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
