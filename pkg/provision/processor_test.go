package provision

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/coolbeans/statute/pkg/toc"
	"github.com/coolbeans/statute/pkg/transport"
)

type fakeFetcher struct {
	payloads map[string]*transport.Payload
	errs     map[string]error
	calls    []string
}

func (fetcher *fakeFetcher) Fetch(ctx context.Context, rawURL string) (*transport.Payload, error) {
	fetcher.calls = append(fetcher.calls, rawURL)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := fetcher.errs[rawURL]; ok {
		return nil, err
	}
	if payload, ok := fetcher.payloads[rawURL]; ok {
		return payload, nil
	}
	return &transport.Payload{URL: rawURL, StatusCode: 404, Body: []byte("not found")}, nil
}

const sectionURI = "https://www.legislation.gov.uk/ukpga/2018/12/section/2"

const fragmentXML = `<?xml version="1.0" encoding="UTF-8"?>
<Legislation xmlns="http://www.legislation.gov.uk/namespaces/legislation">
  <Body>
    <P1group RestrictExtent="E+W" id="section-2">
      <Title>Interpretation</Title>
      <P1 id="section-2-1" DocumentURI="https://www.legislation.gov.uk/ukpga/2018/12/section/2">
        <Pnumber PuncAfter=".">2</Pnumber>
        <P1para>
          <Text>In this Act <Emphasis>personal data</Emphasis> has the meaning given by
          <Citation URI="https://www.legislation.gov.uk/id/ukpga/2018/12/section/3" Class="UnitedKingdomPublicGeneralAct">section 3</Citation>.
          <CommentaryRef Ref="c001"/></Text>
        </P1para>
      </P1>
    </P1group>
  </Body>
  <Commentaries>
    <Commentary id="c001" Type="F">
      <Para><Text>Words substituted by the Data Protection (Amendment) Regulations 2019.</Text></Para>
    </Commentary>
  </Commentaries>
</Legislation>`

func testNode() *toc.Node {
	return &toc.Node{ID: "section-2", Number: "2", Title: "Interpretation", DocumentURI: sectionURI}
}

func newTestProcessor(fragment string) (*Processor, *fakeFetcher) {
	fetcher := &fakeFetcher{
		payloads: map[string]*transport.Payload{
			sectionURI + "/data.xml": {StatusCode: 200, Body: []byte(fragment)},
		},
	}
	return NewProcessor(fetcher, nil), fetcher
}

func TestFragmentURL(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{sectionURI, sectionURI + "/data.xml"},
		{sectionURI + "/", sectionURI + "/data.xml"},
		{sectionURI + "/data.xml", sectionURI + "/data.xml"},
	}
	for _, tc := range cases {
		if derived := FragmentURL(tc.input); derived != tc.expected {
			t.Errorf("FragmentURL(%q): got %q, want %q", tc.input, derived, tc.expected)
		}
	}
}

func TestProcessAttributeAllowList(t *testing.T) {
	processor, _ := newTestProcessor(fragmentXML)

	content, err := processor.Process(context.Background(), testNode())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	for _, stripped := range []string{"RestrictExtent", "PuncAfter", "DocumentURI", "id=", "Class="} {
		if strings.Contains(content.Body, stripped) {
			t.Errorf("output carries disallowed attribute %q:\n%s", stripped, content.Body)
		}
	}
}

func TestProcessCitationBecomesAnchor(t *testing.T) {
	processor, _ := newTestProcessor(fragmentXML)

	content, err := processor.Process(context.Background(), testNode())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if !strings.Contains(content.Body, `<a href="https://www.legislation.gov.uk/id/ukpga/2018/12/section/3" class="citation">section 3</a>`) {
		t.Errorf("citation not rewritten into a navigable anchor:\n%s", content.Body)
	}
	if strings.Contains(content.Body, "<Citation") {
		t.Error("raw Citation element survived processing")
	}
}

func TestProcessFlattensInlineWrappers(t *testing.T) {
	processor, _ := newTestProcessor(fragmentXML)

	content, err := processor.Process(context.Background(), testNode())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	for _, wrapper := range []string{"<Emphasis", "<Text", "<Para"} {
		if strings.Contains(content.Body, wrapper) {
			t.Errorf("inline wrapper %q survived processing:\n%s", wrapper, content.Body)
		}
	}
	if !strings.Contains(content.Body, "personal data") {
		t.Error("wrapper content lost during flattening")
	}
}

func TestProcessAmendmentSeparation(t *testing.T) {
	processor, _ := newTestProcessor(fragmentXML)

	content, err := processor.Process(context.Background(), testNode())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if strings.Contains(content.Body, "CommentaryRef") {
		t.Error("inline commentary reference survived in the body")
	}
	if len(content.Notes) != 1 {
		t.Fatalf("notes: got %d, want 1", len(content.Notes))
	}
	note := content.Notes[0]
	if note.Kind != NoteTextual {
		t.Errorf("note kind: got %q, want %q", note.Kind, NoteTextual)
	}
	if !strings.Contains(note.Body, "Words substituted") {
		t.Errorf("note body: got %q", note.Body)
	}
	if note.Title != "F1" {
		t.Errorf("note title: got %q, want %q", note.Title, "F1")
	}
}

func TestProcessDuplicateCommentaryRefsCollapse(t *testing.T) {
	fragment := strings.Replace(fragmentXML,
		`<CommentaryRef Ref="c001"/>`,
		`<CommentaryRef Ref="c001"/><CommentaryRef Ref="c001"/>`, 1)
	processor, _ := newTestProcessor(fragment)

	content, err := processor.Process(context.Background(), testNode())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(content.Notes) != 1 {
		t.Errorf("duplicate refs to one commentary must yield one note, got %d", len(content.Notes))
	}
}

func TestClassifyCommentary(t *testing.T) {
	cases := []struct {
		code     string
		expected NoteKind
	}{
		{"F", NoteTextual},
		{"f", NoteTextual},
		{"I", NoteCommencement},
		{"C", NoteCommencement},
		{"M", NoteOther},
		{"E", NoteOther},
		{"", NoteOther},
	}
	for _, tc := range cases {
		if kind := classifyCommentary(tc.code); kind != tc.expected {
			t.Errorf("classifyCommentary(%q): got %q, want %q", tc.code, kind, tc.expected)
		}
	}
}

func TestProcessEmptyURIFailsFast(t *testing.T) {
	processor, fetcher := newTestProcessor(fragmentXML)

	_, err := processor.Process(context.Background(), &toc.Node{ID: "x"})
	if err == nil {
		t.Fatal("expected failure for node without a document URI")
	}
	var fragmentError *FragmentError
	if !errors.As(err, &fragmentError) {
		t.Fatalf("expected *FragmentError, got %T", err)
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("no fetch should happen for an unresolvable node, got %d calls", len(fetcher.calls))
	}
}

func TestProcessFetchFailureCarriesFallbackLink(t *testing.T) {
	fetcher := &fakeFetcher{
		errs: map[string]error{
			sectionURI + "/data.xml": errors.New("connection reset"),
		},
	}
	processor := NewProcessor(fetcher, nil)

	_, err := processor.Process(context.Background(), testNode())
	var fragmentError *FragmentError
	if !errors.As(err, &fragmentError) {
		t.Fatalf("expected *FragmentError, got %T: %v", err, err)
	}
	if fragmentError.FallbackURL != sectionURI {
		t.Errorf("FallbackURL: got %q, want %q", fragmentError.FallbackURL, sectionURI)
	}
	if !strings.Contains(fragmentError.Error(), sectionURI) {
		t.Error("error message must offer the direct source link")
	}
}

func TestProcessMalformedFragment(t *testing.T) {
	processor, _ := newTestProcessor(`<Legislation><Body><P1>truncated`)

	// The tolerant decoder may or may not error on truncation; either a
	// FragmentError or a processed stub is acceptable, a panic is not.
	content, err := processor.Process(context.Background(), testNode())
	if err != nil {
		var fragmentError *FragmentError
		if !errors.As(err, &fragmentError) {
			t.Fatalf("expected *FragmentError, got %T", err)
		}
		return
	}
	if content == nil {
		t.Fatal("nil content without error")
	}
}

func TestProcessNoBodyRoot(t *testing.T) {
	processor, _ := newTestProcessor(`<Legislation><Resources/></Legislation>`)

	_, err := processor.Process(context.Background(), testNode())
	var fragmentError *FragmentError
	if !errors.As(err, &fragmentError) {
		t.Fatalf("expected *FragmentError for missing body root, got %T: %v", err, err)
	}
	if fragmentError.FallbackURL != sectionURI {
		t.Errorf("FallbackURL: got %q, want %q", fragmentError.FallbackURL, sectionURI)
	}
}

func TestProcessScheduleRoot(t *testing.T) {
	fragment := `<Legislation><Schedule id="schedule-1"><Title>Schedule 1</Title>
	<P1para><Text>Schedule paragraph text.</Text></P1para></Schedule></Legislation>`
	processor, _ := newTestProcessor(fragment)

	content, err := processor.Process(context.Background(), testNode())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !strings.Contains(content.Body, "Schedule paragraph text.") {
		t.Errorf("schedule content missing:\n%s", content.Body)
	}
}
