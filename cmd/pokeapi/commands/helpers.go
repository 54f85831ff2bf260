package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/pokeapi/internal/constants"
	"github.com/fivetwenty-io/pokeapi/internal/logging"
	"github.com/fivetwenty-io/pokeapi/internal/metrics"
	"github.com/fivetwenty-io/pokeapi/pkg/pokeapi"
	"github.com/fivetwenty-io/pokeapi/pkg/pokeclient"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Viper keys shared by the commands and main.
const (
	KeyBaseURL     = "base_url"
	KeyCacheType   = "cache_type"
	KeyCacheDir    = "cache_dir"
	KeyNATSURL     = "nats_url"
	KeyOutput      = "output"
	KeyVerbose     = "verbose"
	KeyNoMatch     = "no_match"
	KeyDedup       = "dedup"
	KeyTimeout     = "timeout"
	KeyRetries     = "retries"
	KeyShowMetrics = "show_metrics"
	KeyCacheMaxAge = "cache_max_age"
)

// session is one CLI invocation's client plus its metrics and logger.
type session struct {
	client   pokeapi.Client
	registry *prometheus.Registry
	logger   *logging.ZapLogger
}

func openSession(ctx context.Context) (*session, error) {
	config, err := buildConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewDevelopment(viper.GetBool(KeyVerbose))
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()

	collector, err := metrics.NewCollector(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	config.Logger = logger
	config.Debug = viper.GetBool(KeyVerbose)
	config.Metrics = collector
	config.Interceptors = pokeapi.NewInterceptorChain().
		AddResponseInterceptor(collector.ResponseInterceptor())

	client, err := pokeclient.New(ctx, config)
	if err != nil {
		return nil, err
	}

	return &session{client: client, registry: registry, logger: logger}, nil
}

// close releases the client and prints the gathered metrics when asked to.
func (s *session) close(out io.Writer) error {
	err := s.client.Close()

	if viper.GetBool(KeyShowMetrics) {
		if metricsErr := renderMetrics(out, s.registry); metricsErr != nil && err == nil {
			err = metricsErr
		}
	}

	_ = s.logger.Sync()

	return err
}

// buildConfig turns the bound flags, environment and config file into a client config.
func buildConfig() (*pokeapi.Config, error) {
	config := pokeapi.DefaultConfig()

	if baseURL := viper.GetString(KeyBaseURL); baseURL != "" {
		config.BaseURL = baseURL
	}

	config.DisableMatching = viper.GetBool(KeyNoMatch)
	config.DedupInFlight = viper.GetBool(KeyDedup)

	if timeout := viper.GetDuration(KeyTimeout); timeout > 0 {
		config.HTTPTimeout = timeout
	}

	if viper.IsSet(KeyRetries) {
		config.RetryMax = viper.GetInt(KeyRetries)
		if config.RetryMax == 0 {
			config.RetryMax = -1
		}
	}

	cacheConfig, err := buildCacheConfig()
	if err != nil {
		return nil, err
	}

	config.Cache = cacheConfig

	return config, nil
}

func buildCacheConfig() (*pokeapi.CacheConfig, error) {
	dir := viper.GetString(KeyCacheDir)
	builder := pokeapi.NewCacheBuilder()

	switch pokeapi.CacheType(viper.GetString(KeyCacheType)) {
	case "", pokeapi.CacheTypeFile:
		builder.WithDir(dir)
	case pokeapi.CacheTypeBolt:
		path := ""
		if dir != "" {
			path = filepath.Join(dir, constants.BoltFileName)
		}

		builder.WithBoltPath(path)
	case pokeapi.CacheTypeNATS:
		url := viper.GetString(KeyNATSURL)
		if url == "" {
			return nil, constants.ErrNATSURLRequired
		}

		builder.WithNATSConfig(&pokeapi.NATSCacheConfig{
			URL:    url,
			Bucket: constants.DefaultNATSBucket,
			TTL:    constants.DefaultNATSTTL,
		})
	case pokeapi.CacheTypeNone:
		builder.WithType(pokeapi.CacheTypeNone)
	default:
		return nil, fmt.Errorf("%w: %s", constants.ErrInvalidCacheType, viper.GetString(KeyCacheType))
	}

	builder.WithMaxAge(viper.GetDuration(KeyCacheMaxAge))

	return builder.Build()
}

// outputFormat returns the requested format. Without one, terminals get a
// table and pipes get json.
func outputFormat(out io.Writer) (string, error) {
	format := viper.GetString(KeyOutput)

	switch format {
	case constants.FormatJSON, constants.FormatYAML, constants.FormatTable:
		return format, nil
	case "":
		if file, ok := out.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
			return constants.FormatTable, nil
		}

		return constants.FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", constants.ErrInvalidOutput, format)
	}
}

// render writes value as json or yaml, or calls table for the table format.
func render(out io.Writer, value interface{}, table func(*tablewriter.Table) error) error {
	format, err := outputFormat(out)
	if err != nil {
		return err
	}

	switch format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")

		return encoder.Encode(value)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(out)
		defer func() { _ = encoder.Close() }()

		return encoder.Encode(yamlValue(value))
	default:
		writer := tablewriter.NewWriter(out)
		if err := table(writer); err != nil {
			return err
		}

		if err := writer.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	}
}

// yamlValue swaps materialized nodes for plain maps so yaml sees their fields.
func yamlValue(value interface{}) interface{} {
	switch typed := value.(type) {
	case *pokeapi.Resource:
		return typed.Plain()
	case *pokeapi.Node, []*pokeapi.Node:
		return pokeapi.PlainValue(typed)
	default:
		return value
	}
}

// nodeRows appends one row per field of node.
func nodeRows(table *tablewriter.Table, node *pokeapi.Node) error {
	table.Header("Field", "Value")

	for _, field := range node.Fields() {
		if err := table.Append(field.Name, summarize(field.Value)); err != nil {
			return err
		}
	}

	return nil
}

// summarize renders a materialized value on one table cell.
func summarize(value interface{}) string {
	switch typed := value.(type) {
	case nil:
		return constants.NotAvailable
	case *pokeapi.Node:
		if url, ok := typed.ReferenceURL(); ok {
			if name, err := typed.GetString("name"); err == nil {
				return name + " (" + url + ")"
			}

			return url
		}

		return fmt.Sprintf("{%d fields}", typed.Len())
	case []*pokeapi.Node:
		return fmt.Sprintf("[%d items]", len(typed))
	case []interface{}:
		return fmt.Sprintf("[%d values]", len(typed))
	case json.Number:
		return typed.String()
	case bool:
		return strconv.FormatBool(typed)
	case string:
		return truncate(strings.Join(strings.Fields(typed), " "))
	default:
		return truncate(fmt.Sprint(typed))
	}
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= constants.StringTruncationLimit {
		return s
	}

	return string(runes[:constants.StringTruncationLimit-3]) + "..."
}

func renderMetrics(out io.Writer, gatherer prometheus.Gatherer) error {
	samples, err := metrics.Snapshot(gatherer)
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	return render(out, samples, func(table *tablewriter.Table) error {
		table.Header("Metric", "Labels", "Value", "Count")

		for _, sample := range samples {
			count := ""
			if sample.Count > 0 {
				count = strconv.FormatUint(sample.Count, 10)
			}

			if err := table.Append(sample.Name, sample.Labels, strconv.FormatFloat(sample.Value, 'g', 6, 64), count); err != nil {
				return err
			}
		}

		return nil
	})
}

// parseResource turns a positional argument into an identifier.
func parseResource(arg string) (pokeapi.Identifier, error) {
	identifier := pokeapi.ParseIdentifier(arg)
	if err := identifier.Validate(); err != nil {
		return pokeapi.NoResource, fmt.Errorf("%w: %q", constants.ErrInvalidResourceArg, arg)
	}

	return identifier, nil
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
