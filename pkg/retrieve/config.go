package retrieve

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coolbeans/statute/pkg/markup"
)

// DefaultMinContentLength is the minimum extracted text length, in bytes,
// for a candidate subtree to count as genuine content.
const DefaultMinContentLength = 750

// DefaultInterstitialMaxBytes is the raw payload size below which a page
// carrying all interstitial markers is treated as a version chooser. Long
// documents can mention the marker phrases in passing; version choosers are
// always small.
const DefaultInterstitialMaxBytes = 20 * 1024

// defaultInterstitialMarkers are the literal phrases that appear together on
// the legislation.gov.uk version-selection page.
var defaultInterstitialMarkers = []string{
	"Latest available",
	"Point in Time",
	"Original (As enacted)",
}

// defaultSelectors is the content-container chain, most specific first and
// falling back to the whole body.
var defaultSelectors = []markup.Selector{
	{ID: "viewLegContents"},
	{Tag: "div", Class: "LegContent"},
	{ID: "content"},
	{Tag: "article"},
	{Tag: "body"},
}

// Config holds the retriever's extraction thresholds. These were tuned
// against the live site rather than derived from a documented contract, so
// they are configuration, not invariants.
type Config struct {
	// MinContentLength is the minimum extracted text length for an accepted
	// subtree.
	MinContentLength int `yaml:"min_content_length"`

	// InterstitialMaxBytes is the payload size ceiling of the interstitial
	// test.
	InterstitialMaxBytes int `yaml:"interstitial_max_bytes"`

	// InterstitialMarkers are the phrases that must all be present for a
	// payload to be classified as an interstitial.
	InterstitialMarkers []string `yaml:"interstitial_markers"`

	// Selectors is the ordered content-container chain.
	Selectors []markup.Selector `yaml:"selectors"`
}

// DefaultConfig returns a Config with the empirically tuned defaults.
func DefaultConfig() Config {
	return Config{
		MinContentLength:     DefaultMinContentLength,
		InterstitialMaxBytes: DefaultInterstitialMaxBytes,
		InterstitialMarkers:  defaultInterstitialMarkers,
		Selectors:            defaultSelectors,
	}
}

// LoadConfig reads retriever thresholds from a YAML file. Fields left unset
// in the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read retriever config: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse retriever config: %w", err)
	}

	if config.MinContentLength <= 0 {
		return Config{}, fmt.Errorf("min_content_length must be positive, got %d", config.MinContentLength)
	}
	if config.InterstitialMaxBytes <= 0 {
		return Config{}, fmt.Errorf("interstitial_max_bytes must be positive, got %d", config.InterstitialMaxBytes)
	}
	if len(config.Selectors) == 0 {
		return Config{}, fmt.Errorf("at least one content selector is required")
	}

	return config, nil
}
