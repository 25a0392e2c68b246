package provision

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coolbeans/statute/pkg/toc"
	"github.com/coolbeans/statute/pkg/transport"
)

// slowFetcher blocks each fetch until released, so tests can overlap
// activations deterministically.
type slowFetcher struct {
	payload *transport.Payload
	started chan string
	release chan struct{}
}

func (fetcher *slowFetcher) Fetch(ctx context.Context, rawURL string) (*transport.Payload, error) {
	fetcher.started <- rawURL
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-fetcher.release:
		return fetcher.payload, nil
	}
}

func testTree() []*toc.Node {
	return []*toc.Node{
		{ID: "section-1", Number: "1", Title: "Overview", DocumentURI: "https://www.legislation.gov.uk/ukpga/2018/12/section/1"},
		{
			ID: "part-1", Number: "Part 1", Title: "General",
			DocumentURI: "https://www.legislation.gov.uk/ukpga/2018/12/part/1",
			Children: []*toc.Node{
				{ID: "section-2", Number: "2", Title: "Interpretation", DocumentURI: sectionURI, Level: 1},
				{ID: "section-3", Number: "3.", Title: "Application", DocumentURI: "https://www.legislation.gov.uk/ukpga/2018/12/section/3", Level: 1},
			},
		},
	}
}

func TestResolveNumber(t *testing.T) {
	navigator := NewNavigator(NewProcessor(&fakeFetcher{}, nil), testTree())

	cases := []struct {
		number   string
		expected string // node ID, empty for no match
	}{
		{"1", "section-1"},
		{"2", "section-2"},
		{"3", "section-3"}, // printed number carries a trailing dot
		{"99", ""},
		{"", ""},
	}
	for _, tc := range cases {
		node := navigator.ResolveNumber(tc.number)
		if tc.expected == "" {
			if node != nil {
				t.Errorf("ResolveNumber(%q): expected no match, got %q", tc.number, node.ID)
			}
			continue
		}
		if node == nil || node.ID != tc.expected {
			t.Errorf("ResolveNumber(%q): got %v, want %q", tc.number, node, tc.expected)
		}
	}
}

func TestActivateReferenceResolvesAndFetches(t *testing.T) {
	fetcher := &fakeFetcher{
		payloads: map[string]*transport.Payload{
			sectionURI + "/data.xml": {StatusCode: 200, Body: []byte(fragmentXML)},
		},
	}
	navigator := NewNavigator(NewProcessor(fetcher, nil), testTree())

	content, err := navigator.ActivateReference(context.Background(),
		"https://www.legislation.gov.uk/id/ukpga/2018/12/section/2")
	if err != nil {
		t.Fatalf("ActivateReference failed: %v", err)
	}
	if content.SourceURL != sectionURI {
		t.Errorf("SourceURL: got %q, want %q", content.SourceURL, sectionURI)
	}
}

func TestActivateReferenceUnresolved(t *testing.T) {
	navigator := NewNavigator(NewProcessor(&fakeFetcher{}, nil), testTree())

	// No provision number in the target.
	if _, err := navigator.ActivateReference(context.Background(), "https://www.legislation.gov.uk/ukpga/2018/12"); !errors.Is(err, ErrUnresolvedReference) {
		t.Errorf("expected ErrUnresolvedReference, got %v", err)
	}

	// Number with no matching node.
	if _, err := navigator.ActivateReference(context.Background(),
		"https://www.legislation.gov.uk/id/ukpga/2018/12/section/99"); !errors.Is(err, ErrUnresolvedReference) {
		t.Errorf("expected ErrUnresolvedReference, got %v", err)
	}
}

func TestActivateLastRequestWins(t *testing.T) {
	fetcher := &slowFetcher{
		payload: &transport.Payload{StatusCode: 200, Body: []byte(fragmentXML)},
		started: make(chan string, 2),
		release: make(chan struct{}),
	}
	navigator := NewNavigator(NewProcessor(fetcher, nil), testTree())
	tree := testTree()

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = navigator.Activate(context.Background(), tree[1].Children[0])
	}()

	// Wait until the first activation is in flight, then start the second.
	<-fetcher.started

	var secondContent *Content
	var secondErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		secondContent, secondErr = navigator.Activate(context.Background(), tree[1].Children[1])
	}()

	<-fetcher.started
	close(fetcher.release)
	wg.Wait()

	if !errors.Is(firstErr, ErrSuperseded) {
		t.Errorf("first activation: expected ErrSuperseded, got %v", firstErr)
	}
	if secondErr != nil {
		t.Errorf("second activation failed: %v", secondErr)
	}
	if secondContent == nil {
		t.Error("second activation returned no content")
	}
}

func TestActivateSequentialBothSucceed(t *testing.T) {
	fetcher := &fakeFetcher{
		payloads: map[string]*transport.Payload{
			sectionURI + "/data.xml": {StatusCode: 200, Body: []byte(fragmentXML)},
		},
	}
	navigator := NewNavigator(NewProcessor(fetcher, nil), testTree())
	node := testTree()[1].Children[0]

	for i := 0; i < 2; i++ {
		if _, err := navigator.Activate(context.Background(), node); err != nil {
			t.Fatalf("sequential activation %d failed: %v", i, err)
		}
	}
}

// Guard against the superseded check racing a fast completion.
func TestActivateQuickSuccession(t *testing.T) {
	fetcher := &fakeFetcher{
		payloads: map[string]*transport.Payload{
			sectionURI + "/data.xml": {StatusCode: 200, Body: []byte(fragmentXML)},
		},
	}
	navigator := NewNavigator(NewProcessor(fetcher, nil), testTree())
	node := testTree()[1].Children[0]

	done := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := navigator.Activate(context.Background(), node)
			done <- err
		}()
	}

	succeeded := 0
	for i := 0; i < 4; i++ {
		select {
		case err := <-done:
			if err == nil {
				succeeded++
			} else if !errors.Is(err, ErrSuperseded) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("activation deadlocked")
		}
	}
	if succeeded == 0 {
		t.Error("at least one activation must win")
	}
}
