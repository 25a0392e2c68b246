// Package retrieve implements the content retriever: given a canonical
// document identifier, it works through an ordered list of URL variants until
// one yields genuine document content, rejecting version-selection
// interstitials and near-empty wrappers along the way.
package retrieve

import (
	"context"
	"fmt"
	"strings"

	"github.com/coolbeans/statute/internal/logger"
	"github.com/coolbeans/statute/pkg/markup"
	"github.com/coolbeans/statute/pkg/transport"
	"github.com/coolbeans/statute/pkg/ukleg"
)

// Outcome labels why a candidate URL was passed over.
type Outcome string

const (
	OutcomeTransportError Outcome = "transport_error"
	OutcomeBadStatus      Outcome = "bad_status"
	OutcomeInterstitial   Outcome = "interstitial"
	OutcomeNoContent      Outcome = "no_content"
	OutcomeAccepted       Outcome = "accepted"
)

// Attempt records one candidate URL and why it was or was not accepted.
type Attempt struct {
	URL     string  `json:"url"`
	Outcome Outcome `json:"outcome"`
	Detail  string  `json:"detail,omitempty"`
}

// Document is the retrieved, sanitized body of a legal instrument.
type Document struct {
	// Body is the sanitized inner markup of the accepted content container.
	Body string `json:"body"`

	// SourceURL is the candidate URL that produced the body.
	SourceURL string `json:"source_url"`

	// Attempts lists every candidate tried, in order, including the
	// accepted one.
	Attempts []Attempt `json:"attempts"`
}

// ExhaustedError is returned when every candidate URL failed or was
// rejected. It carries the base document URL so callers can offer the user a
// direct link to the source.
type ExhaustedError struct {
	BaseURL  string
	Attempts []Attempt
}

func (exhausted *ExhaustedError) Error() string {
	return fmt.Sprintf("could not structure document automatically after %d attempts; view it at the source: %s",
		len(exhausted.Attempts), exhausted.BaseURL)
}

// Retriever fetches a working version of a document body.
type Retriever struct {
	fetcher transport.Fetcher
	config  Config
	log     *logger.Logger
}

// NewRetriever creates a Retriever. A nil logger disables logging.
func NewRetriever(fetcher transport.Fetcher, config Config, log *logger.Logger) *Retriever {
	if log == nil {
		log = logger.Nop()
	}
	return &Retriever{
		fetcher: fetcher,
		config:  config,
		log:     log.WithComponent("retrieve"),
	}
}

// Retrieve tries the identifier's candidate URLs in order and returns the
// first accepted content body. The loop is strictly sequential: each
// candidate's result decides whether the next is attempted, and the first
// acceptance wins. On exhaustion it returns an *ExhaustedError; retrieval
// failure is an expected, user-actionable outcome.
func (retriever *Retriever) Retrieve(ctx context.Context, identifier ukleg.Identifier) (*Document, error) {
	attempts := make([]Attempt, 0, 4)

	for _, candidate := range identifier.CandidateURLs() {
		payload, err := retriever.fetcher.Fetch(ctx, candidate)
		if err != nil {
			attempts = append(attempts, Attempt{URL: candidate, Outcome: OutcomeTransportError, Detail: err.Error()})
			retriever.log.Debug().Str("url", candidate).Err(err).Msg("candidate fetch failed")
			continue
		}
		if !payload.OK() {
			attempts = append(attempts, Attempt{URL: candidate, Outcome: OutcomeBadStatus, Detail: fmt.Sprintf("HTTP %d", payload.StatusCode)})
			retriever.log.Debug().Str("url", candidate).Int("status", payload.StatusCode).Msg("candidate returned non-success status")
			continue
		}

		if retriever.isInterstitial(payload.Body) {
			attempts = append(attempts, Attempt{URL: candidate, Outcome: OutcomeInterstitial})
			retriever.log.Debug().Str("url", candidate).Msg("candidate is a version-selection interstitial")
			continue
		}

		body, ok := retriever.extract(payload.Body)
		if !ok {
			attempts = append(attempts, Attempt{URL: candidate, Outcome: OutcomeNoContent})
			retriever.log.Debug().Str("url", candidate).Msg("no selector yielded substantial content")
			continue
		}

		attempts = append(attempts, Attempt{URL: candidate, Outcome: OutcomeAccepted})
		retriever.log.Info().Str("url", candidate).Int("attempts", len(attempts)).Msg("document content accepted")
		return &Document{
			Body:      body,
			SourceURL: candidate,
			Attempts:  attempts,
		}, nil
	}

	retriever.log.Warn().Str("document", identifier.String()).Msg("all retrieval candidates exhausted")
	return nil, &ExhaustedError{
		BaseURL:  identifier.String(),
		Attempts: attempts,
	}
}

// isInterstitial applies the dual test for version-chooser pages: all marker
// phrases present AND the raw payload below the size ceiling. Either test
// alone produces false positives.
func (retriever *Retriever) isInterstitial(payload []byte) bool {
	if len(payload) >= retriever.config.InterstitialMaxBytes {
		return false
	}
	return retriever.containsAllMarkers(string(payload))
}

func (retriever *Retriever) containsAllMarkers(text string) bool {
	if len(retriever.config.InterstitialMarkers) == 0 {
		return false
	}
	for _, marker := range retriever.config.InterstitialMarkers {
		if !strings.Contains(text, marker) {
			return false
		}
	}
	return true
}

// extract attempts each configured selector in order and returns the first
// sanitized subtree whose text content clears the minimum-length gate both
// before and after chrome removal.
func (retriever *Retriever) extract(payload []byte) (string, bool) {
	document, err := markup.Parse(payload)
	if err != nil {
		return "", false
	}

	for _, selector := range retriever.config.Selectors {
		container := markup.Find(document, selector)
		if container == nil {
			continue
		}
		if len(markup.Text(container)) < retriever.config.MinContentLength {
			// Near-empty wrapper; a later, broader selector may still hit.
			continue
		}

		markup.Sanitize(container)

		cleanedText := markup.Text(container)
		if len(cleanedText) < retriever.config.MinContentLength {
			continue
		}
		// Re-apply the interstitial dual test: chrome removal can leave a
		// version-chooser list as the only surviving content.
		if len(cleanedText) < retriever.config.InterstitialMaxBytes && retriever.containsAllMarkers(cleanedText) {
			continue
		}

		return markup.InnerHTML(container), true
	}

	return "", false
}
