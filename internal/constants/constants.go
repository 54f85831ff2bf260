package constants

import "time"

// Service defaults.
const (
	// DefaultBaseURL is the root of the public PokéAPI v2 service.
	DefaultBaseURL = "https://pokeapi.co/api/v2"

	// DefaultUserAgent is sent with every request unless overridden.
	DefaultUserAgent = "pokeapi-go"

	// CatalogListLimit is the page size used to list an entire endpoint in one request.
	CatalogListLimit = 100000
)

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration and cache directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration and cache files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second

	// BoltOpenTimeout bounds how long opening a locked bbolt file may block.
	BoltOpenTimeout = 1 * time.Second

	// NATSOperationTimeout bounds a single NATS KV load or save.
	NATSOperationTimeout = 10 * time.Second
)

// Retry limits.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 4

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 500 * time.Millisecond

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Concurrency limits.
const (
	// DefaultConcurrencyLimit limits concurrent batch operations.
	DefaultConcurrencyLimit = 10

	// DefaultBatchTimeout bounds a single batch operation.
	DefaultBatchTimeout = 60 * time.Second
)

// Cache defaults.
const (
	// CacheDirName is the directory under the user cache dir holding cache files.
	CacheDirName = "pokeapi"

	// CacheFileExt is appended to the endpoint name for file-backed containers.
	CacheFileExt = ".cache"

	// BoltFileName is the database file used by the bbolt backend.
	BoltFileName = "pokeapi.db"

	// DefaultNATSBucket is the JetStream KV bucket used by the NATS backend.
	DefaultNATSBucket = "pokeapi"

	// DefaultNATSTTL expires NATS cache entries after one week.
	DefaultNATSTTL = 7 * 24 * time.Hour
)

// Format constants.
const (
	// FormatJSON is the json output format.
	FormatJSON = "json"

	// FormatYAML is the yaml output format.
	FormatYAML = "yaml"

	// FormatTable is the table output format.
	FormatTable = "table"
)

// Display constants.
const (
	// NotAvailable is shown for missing values.
	NotAvailable = "N/A"

	// StringTruncationLimit caps long scalar values in table output.
	StringTruncationLimit = 60

	// PercentageMultiplier converts ratios to percentages.
	PercentageMultiplier = 100
)
