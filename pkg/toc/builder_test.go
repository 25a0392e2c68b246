package toc

import (
	"reflect"
	"testing"
)

const outlineXML = `<?xml version="1.0" encoding="UTF-8"?>
<Legislation xmlns="http://www.legislation.gov.uk/namespaces/legislation"
             xmlns:ukm="http://www.legislation.gov.uk/namespaces/metadata"
             xmlns:dc="http://purl.org/dc/elements/1.1/">
  <ukm:Metadata>
    <dc:title>Example Act 2018</dc:title>
    <dc:modified>2021-04-01</dc:modified>
    <ukm:UnappliedEffects>
      <ukm:UnappliedEffect AffectedProvisions="s. 2"/>
      <ukm:UnappliedEffect AffectedProvisions="s. 5"/>
    </ukm:UnappliedEffects>
  </ukm:Metadata>
  <Contents>
    <ContentsPart ContentRef="part-1" DocumentURI="https://www.legislation.gov.uk/ukpga/2018/12/part/1">
      <ContentsNumber>Part 1</ContentsNumber>
      <ContentsTitle>General [F3]</ContentsTitle>
      <ContentsItem ContentRef="section-2" DocumentURI="https://www.legislation.gov.uk/ukpga/2018/12/section/2">
        <ContentsNumber>2</ContentsNumber>
        <ContentsTitle>[F1]Interpretation</ContentsTitle>
      </ContentsItem>
      <ContentsItem ContentRef="section-3" DocumentURI="https://www.legislation.gov.uk/ukpga/2018/12/section/3" Status="Prospective">
        <ContentsNumber>3</ContentsNumber>
        <ContentsTitle>Application</ContentsTitle>
      </ContentsItem>
    </ContentsPart>
    <ContentsItem ContentRef="section-1" DocumentURI="https://www.legislation.gov.uk/ukpga/2018/12/section/1">
      <ContentsNumber>1</ContentsNumber>
      <ContentsTitle>Overview</ContentsTitle>
    </ContentsItem>
    <ContentsSchedules>
      <ContentsSchedule ContentRef="schedule-1" DocumentURI="https://www.legislation.gov.uk/ukpga/2018/12/schedule/1">
        <ContentsNumber>Schedule 1</ContentsNumber>
        <ContentsTitle>Transitional provision</ContentsTitle>
        <ContentsItem DocumentURI="https://www.legislation.gov.uk/ukpga/2018/12/schedule/1/paragraph/1">
          <ContentsNumber>1</ContentsNumber>
          <ContentsTitle>Continuity</ContentsTitle>
        </ContentsItem>
      </ContentsSchedule>
    </ContentsSchedules>
  </Contents>
</Legislation>`

func TestBuildPassOrdering(t *testing.T) {
	// The bare item appears after the Part in the source XML, but the
	// emitted order is bare items, then Parts, then Schedules.
	outline, err := Build([]byte(outlineXML))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(outline.Roots) != 3 {
		t.Fatalf("roots: got %d, want 3", len(outline.Roots))
	}

	if outline.Roots[0].ID != "section-1" {
		t.Errorf("root 0: got %q, want bare item section-1", outline.Roots[0].ID)
	}
	if outline.Roots[1].ID != "part-1" {
		t.Errorf("root 1: got %q, want part-1", outline.Roots[1].ID)
	}
	if outline.Roots[2].ID != "schedule-1" {
		t.Errorf("root 2: got %q, want schedule-1", outline.Roots[2].ID)
	}

	part := outline.Roots[1]
	if len(part.Children) != 2 {
		t.Fatalf("part children: got %d, want 2", len(part.Children))
	}
	if part.Children[0].ID != "section-2" || part.Children[1].ID != "section-3" {
		t.Errorf("part children out of source order: %q, %q", part.Children[0].ID, part.Children[1].ID)
	}
	if part.Children[0].Level != 1 {
		t.Errorf("part child level: got %d, want 1", part.Children[0].Level)
	}

	schedule := outline.Roots[2]
	if len(schedule.Children) != 1 {
		t.Fatalf("schedule children: got %d, want 1", len(schedule.Children))
	}
}

func TestBuildStripsFootnoteMarkers(t *testing.T) {
	outline, err := Build([]byte(outlineXML))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	part := outline.Roots[1]
	if part.Title != "General" {
		t.Errorf("part title: got %q, want %q", part.Title, "General")
	}
	if part.Children[0].Title != "Interpretation" {
		t.Errorf("item title: got %q, want %q", part.Children[0].Title, "Interpretation")
	}
}

func TestBuildStatusFlag(t *testing.T) {
	outline, err := Build([]byte(outlineXML))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if status := outline.Roots[1].Children[1].Status; status != "Prospective" {
		t.Errorf("status: got %q, want %q", status, "Prospective")
	}
}

func TestBuildStableSynthesizedIDs(t *testing.T) {
	first, err := Build([]byte(outlineXML))
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	second, err := Build([]byte(outlineXML))
	if err != nil {
		t.Fatalf("second Build failed: %v", err)
	}

	// The schedule paragraph has no ContentRef; its ID is synthesized from
	// structural position and must be identical across parses.
	firstID := first.Roots[2].Children[0].ID
	secondID := second.Roots[2].Children[0].ID
	if firstID == "" || firstID != secondID {
		t.Errorf("synthesized IDs not stable: %q vs %q", firstID, secondID)
	}
}

func TestBuildMetadata(t *testing.T) {
	outline, err := Build([]byte(outlineXML))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	expected := &Metadata{
		Modified:         "2021-04-01",
		Title:            "Example Act 2018",
		UnappliedEffects: 2,
	}
	if !reflect.DeepEqual(outline.Meta, expected) {
		t.Errorf("metadata: got %+v, want %+v", outline.Meta, expected)
	}
}

func TestBuildEmptyContents(t *testing.T) {
	outline, err := Build([]byte(`<Legislation><Contents/></Legislation>`))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(outline.Roots) != 0 {
		t.Errorf("expected no roots, got %d", len(outline.Roots))
	}
}

func TestBuildMalformed(t *testing.T) {
	if _, err := Build([]byte(`<html><body>not an outline</body></html>`)); err == nil {
		t.Error("expected error for non-outline payload")
	}
}

func TestBuildFromHeadings(t *testing.T) {
	body := []byte(`<html><body>
	<h1>Example Act 2018</h1>
	<p>intro</p>
	<h2>Part 1 [F2]General</h2>
	<h3>Section 1</h3>
	</body></html>`)

	nodes := BuildFromHeadings(body, "https://www.legislation.gov.uk/ukpga/2018/12")
	if len(nodes) != 3 {
		t.Fatalf("nodes: got %d, want 3", len(nodes))
	}
	if nodes[0].Title != "Example Act 2018" {
		t.Errorf("node 0 title: got %q", nodes[0].Title)
	}
	if nodes[1].Title != "Part 1 General" {
		t.Errorf("footnote marker survived: %q", nodes[1].Title)
	}
	for i, node := range nodes {
		if node.DocumentURI != "https://www.legislation.gov.uk/ukpga/2018/12" {
			t.Errorf("node %d must point at the whole document, got %q", i, node.DocumentURI)
		}
		if node.ID == "" {
			t.Errorf("node %d has no ID", i)
		}
	}
}

func TestBuildFromHeadingsNoHeadings(t *testing.T) {
	nodes := BuildFromHeadings([]byte(`<html><body><p>plain</p></body></html>`), "u")
	if len(nodes) != 0 {
		t.Errorf("expected no nodes, got %d", len(nodes))
	}
}
