// Package config provides application configuration management with support
// for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Operations the organizer binary can run.
const (
	OpOrganize  = "organize"
	OpTag       = "tag"
	OpInventory = "inventory"
)

// Config holds the application configuration.
type Config struct {
	Logger    LoggerConfig
	Library   LibraryConfig
	Parser    ParserConfig
	Gemini    GeminiConfig
	Books     BooksConfig
	Search    SearchConfig
	Covers    CoverConfig
	Run       RunConfig
	Operation string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string
	Format string // json or pretty; auto-detected when empty
}

// LibraryConfig holds the library tree layout.
type LibraryConfig struct {
	// SourceDir is the directory of loose files to organize.
	SourceDir string
	// LibraryDir is the destination Author/Title tree.
	LibraryDir string
	// UnclassifiedDirName is the bucket (under LibraryDir) for units that
	// could not be classified.
	UnclassifiedDirName string
	// AuthorsFile is the optional known-authors list, one name per line.
	AuthorsFile string
}

// ParserConfig holds name parsing configuration.
type ParserConfig struct {
	// AudioExtensions and ImageExtensions are lowercase with leading dot.
	AudioExtensions []string
	ImageExtensions []string
	// JunkWords are stripped from names before classification.
	JunkWords []string
}

// GeminiConfig holds the generative-text source configuration.
type GeminiConfig struct {
	APIKey string
	Model  string
	// Force skips the structured lookup and goes straight to Gemini.
	Force bool
}

// BooksConfig holds the structured bibliographic lookup configuration.
type BooksConfig struct {
	// Enabled allows turning the Google Books lookup off entirely.
	Enabled bool
}

// SearchConfig holds the Google Custom Search image search configuration.
// When the key or engine ID is missing the adapter is disabled at startup.
type SearchConfig struct {
	APIKey   string
	EngineID string
}

// CoverConfig holds cover art quality rules.
type CoverConfig struct {
	// MinResolution is the minimum for min(width, height).
	MinResolution int
	// SquareTolerance is the allowed |width-height| in pixels.
	SquareTolerance int
	// MaxEmbedDimension caps the size of covers embedded into audio files;
	// larger images are downscaled first. 0 disables the cap.
	MaxEmbedDimension int
}

// RunConfig holds per-run behavior.
type RunConfig struct {
	// Mode is the tagging mode: smart, all, tags-only, cover-only,
	// fix-covers, or edit.
	Mode string
	// EditField/EditFrom/EditTo parameterize mode=edit.
	EditField string
	EditFrom  string
	EditTo    string
	// Concurrency bounds how many units are in flight at once. It mainly
	// governs outbound API pressure, not CPU.
	Concurrency int
	// MaxRetries bounds retry attempts for transient source failures.
	MaxRetries int
	// HTTPTimeout applies to every outbound request.
	HTTPTimeout time.Duration
	// DryRun suppresses all mutations while still running the cascade.
	DryRun bool
}

// Tag modes accepted by RunConfig.Mode.
var validModes = map[string]bool{
	"smart":      true,
	"all":        true,
	"tags-only":  true,
	"cover-only": true,
	"fix-covers": true,
	"edit":       true,
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("organizer", flag.ContinueOnError)

	op := fs.String("op", "", "Operation (organize, tag, inventory)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "", "Log format (json, pretty)")

	sourceDir := fs.String("source", "", "Directory of loose audiobook files to organize")
	libraryDir := fs.String("library", "", "Destination Author/Title library tree")
	authorsFile := fs.String("authors-file", "", "Known-authors list, one name per line")

	audioExts := fs.String("audio-extensions", "", "Comma-separated audio extensions")
	imageExts := fs.String("image-extensions", "", "Comma-separated image extensions")
	junkWords := fs.String("junk-words", "", "Comma-separated junk words stripped from names")

	geminiKey := fs.String("gemini-api-key", "", "Gemini API key")
	geminiModel := fs.String("gemini-model", "", "Gemini model name")
	forceGemini := fs.Bool("force-gemini", false, "Skip structured lookup, use Gemini directly")
	booksEnabled := fs.String("books-lookup", "", "Enable Google Books lookup (default: true)")

	searchKey := fs.String("search-api-key", "", "Google Custom Search API key")
	searchCX := fs.String("search-engine-id", "", "Google Custom Search engine ID")

	minResolution := fs.Int("cover-min-resolution", 0, "Minimum cover resolution (default: 500)")
	squareTolerance := fs.Int("cover-square-tolerance", -1, "Allowed |width-height| in pixels (default: 0)")
	maxEmbed := fs.Int("cover-max-embed", -1, "Max dimension for embedded covers, 0 disables (default: 1500)")

	mode := fs.String("mode", "", "Tagging mode (smart, all, tags-only, cover-only, fix-covers, edit)")
	editField := fs.String("field", "", "Field to rewrite in edit mode")
	editFrom := fs.String("from", "", "Value to match in edit mode")
	editTo := fs.String("to", "", "Replacement value in edit mode")

	concurrency := fs.Int("concurrency", 0, "Max units in flight (default: 4)")
	maxRetries := fs.Int("max-retries", -1, "Retry attempts for transient failures (default: 3)")
	httpTimeout := fs.String("http-timeout", "", "Timeout for outbound requests (default: 30s)")
	dryRun := fs.Bool("dry-run", false, "Simulate without moving files or writing tags")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		Operation: getConfigValue(*op, "ORGANIZER_OP", OpOrganize),
		Logger: LoggerConfig{
			Level:  getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			Format: getConfigValue(*logFormat, "LOG_FORMAT", ""),
		},
		Library: LibraryConfig{
			SourceDir:           getConfigValue(*sourceDir, "SOURCE_DIR", ""),
			LibraryDir:          getConfigValue(*libraryDir, "LIBRARY_DIR", ""),
			UnclassifiedDirName: getConfigValue("", "UNCLASSIFIED_DIR", "unclassified"),
			AuthorsFile:         getConfigValue(*authorsFile, "AUTHORS_FILE", ""),
		},
		Parser: ParserConfig{
			AudioExtensions: splitList(getConfigValue(*audioExts, "AUDIO_EXTENSIONS",
				".mp3,.m4a,.m4b,.flac,.ogg,.opus,.wav")),
			ImageExtensions: splitList(getConfigValue(*imageExts, "IMAGE_EXTENSIONS",
				".jpg,.jpeg,.png,.webp")),
			JunkWords: splitList(getConfigValue(*junkWords, "JUNK_WORDS",
				"audiobook,audiolibro,unabridged,completo,full,original,dramatizado,"+
					"libro,book,audible,version,edicion,unknown,official,oficial,retail")),
		},
		Gemini: GeminiConfig{
			APIKey: getConfigValue(*geminiKey, "GEMINI_API_KEY", ""),
			Model:  getConfigValue(*geminiModel, "GEMINI_MODEL", "gemini-2.0-flash"),
			Force:  *forceGemini,
		},
		Books: BooksConfig{
			Enabled: getBoolConfigValue(*booksEnabled, "BOOKS_LOOKUP", true),
		},
		Search: SearchConfig{
			APIKey:   getConfigValue(*searchKey, "SEARCH_API_KEY", ""),
			EngineID: getConfigValue(*searchCX, "SEARCH_ENGINE_ID", ""),
		},
		Covers: CoverConfig{
			MinResolution:     getIntConfigValue(intFlag(*minResolution, 0), "COVER_MIN_RESOLUTION", 500),
			SquareTolerance:   getIntConfigValue(intFlag(*squareTolerance, -1), "COVER_SQUARE_TOLERANCE", 0),
			MaxEmbedDimension: getIntConfigValue(intFlag(*maxEmbed, -1), "COVER_MAX_EMBED", 1500),
		},
		Run: RunConfig{
			Mode:        getConfigValue(*mode, "TAG_MODE", "smart"),
			EditField:   *editField,
			EditFrom:    *editFrom,
			EditTo:      *editTo,
			Concurrency: getIntConfigValue(intFlag(*concurrency, 0), "CONCURRENCY", 4),
			MaxRetries:  getIntConfigValue(intFlag(*maxRetries, -1), "MAX_RETRIES", 3),
			DryRun:      *dryRun,
		},
	}

	timeoutStr := getConfigValue(*httpTimeout, "HTTP_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid http timeout %q: %w", timeoutStr, err)
	}
	cfg.Run.HTTPTimeout = timeout

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
// Failures here are fatal for the whole run: nothing can make progress
// without a destination tree or the credentials the cascade needs.
func (c *Config) Validate() error {
	switch c.Operation {
	case OpOrganize, OpTag, OpInventory:
	default:
		return fmt.Errorf("invalid operation: %s (must be organize, tag, or inventory)", c.Operation)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Library.LibraryDir == "" {
		return errors.New("LIBRARY_DIR is required")
	}
	if c.Operation == OpOrganize && c.Library.SourceDir == "" {
		return errors.New("SOURCE_DIR is required for the organize operation")
	}

	if c.Operation == OpOrganize && c.Gemini.APIKey == "" {
		return errors.New("GEMINI_API_KEY is required for the organize operation")
	}

	if !validModes[c.Run.Mode] {
		return fmt.Errorf("invalid mode: %s", c.Run.Mode)
	}
	if c.Run.Mode == "edit" {
		if c.Run.EditField == "" || c.Run.EditTo == "" {
			return errors.New("edit mode requires -field and -to")
		}
	}

	if len(c.Parser.AudioExtensions) == 0 {
		return errors.New("audio extension list cannot be empty")
	}
	if c.Covers.MinResolution <= 0 {
		return errors.New("cover minimum resolution must be positive")
	}
	if c.Run.Concurrency <= 0 {
		return errors.New("concurrency must be positive")
	}
	if c.Run.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}

	return nil
}

// SearchEnabled reports whether the web image search adapter can run.
// Missing credentials disable the adapter rather than aborting the run; the
// cascade simply has one fewer step.
func (c *Config) SearchEnabled() bool {
	return c.Search.APIKey != "" && c.Search.EngineID != ""
}

// expandPaths expands ~ and makes every configured path absolute.
func (c *Config) expandPaths() error {
	var err error
	if c.Library.SourceDir, err = expandPath(c.Library.SourceDir); err != nil {
		return fmt.Errorf("invalid source dir: %w", err)
	}
	if c.Library.LibraryDir, err = expandPath(c.Library.LibraryDir); err != nil {
		return fmt.Errorf("invalid library dir: %w", err)
	}
	if c.Library.AuthorsFile, err = expandPath(c.Library.AuthorsFile); err != nil {
		return fmt.Errorf("invalid authors file: %w", err)
	}
	return nil
}

// expandPath expands ~ and makes the path absolute. Empty stays empty.
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// splitList splits a comma-separated value into trimmed lowercase entries.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// intFlag renders a flag value for getIntConfigValue, treating the unset
// sentinel as empty so env vars and defaults can take over.
func intFlag(value, unset int) string {
	if value == unset {
		return ""
	}
	return fmt.Sprintf("%d", value)
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Env vars take precedence over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
