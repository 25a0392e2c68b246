package toc

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
)

// --- Contents XML structures ---
// The outline format mixes three sibling shapes that are not uniformly
// nested: bare items outside any container, Parts with item children, and
// Schedules with item children. Minimal structs for the elements needed.

type contentsDocument struct {
	XMLName  xml.Name     `xml:"Legislation"`
	Metadata *metadataXML `xml:"Metadata"`
	Contents *contentsXML `xml:"Contents"`
}

type metadataXML struct {
	Modified         string     `xml:"modified"`
	Title            string     `xml:"title"`
	UnappliedEffects []struct{} `xml:"UnappliedEffects>UnappliedEffect"`
}

type contentsXML struct {
	Items          []contentsItem     `xml:"ContentsItem"`
	Parts          []contentsPart     `xml:"ContentsPart"`
	Schedules      []contentsSchedule `xml:"ContentsSchedule"`
	ScheduleGroups []struct {
		Schedules []contentsSchedule `xml:"ContentsSchedule"`
	} `xml:"ContentsSchedules"`
}

type contentsItem struct {
	ContentRef  string `xml:"ContentRef,attr"`
	DocumentURI string `xml:"DocumentURI,attr"`
	Status      string `xml:"Status,attr"`
	Number      string `xml:"ContentsNumber"`
	Title       string `xml:"ContentsTitle"`
}

type contentsPart struct {
	ContentRef  string `xml:"ContentRef,attr"`
	DocumentURI string `xml:"DocumentURI,attr"`
	Status      string `xml:"Status,attr"`
	Number      string `xml:"ContentsNumber"`
	Title       string `xml:"ContentsTitle"`
	Items       []contentsItem `xml:"ContentsItem"`
	Blocks      []struct {
		Items []contentsItem `xml:"ContentsItem"`
	} `xml:"ContentsPblock"`
}

type contentsSchedule struct {
	ContentRef  string         `xml:"ContentRef,attr"`
	DocumentURI string         `xml:"DocumentURI,attr"`
	Status      string         `xml:"Status,attr"`
	Number      string         `xml:"ContentsNumber"`
	Title       string         `xml:"ContentsTitle"`
	Items       []contentsItem `xml:"ContentsItem"`
}

// footnoteMarker matches bracketed editorial amendment marks such as [F12]
// embedded in numbers and titles.
var footnoteMarker = regexp.MustCompile(`\[F\d+\]?|\bF\d+\]`)

// Build parses the outline XML into the ordered root node sequence. The
// three shapes are processed as three independent passes over the document,
// emitted in canonical reading order: bare items first, then Parts, then
// Schedules — the source XML does not guarantee document order across the
// shapes. A result with zero nodes is a valid "no contents available" state,
// not an error.
func Build(payload []byte) (*Outline, error) {
	document, err := parseContents(payload)
	if err != nil {
		return nil, err
	}

	outline := &Outline{Roots: []*Node{}}
	if document.Metadata != nil {
		outline.Meta = &Metadata{
			Modified:         strings.TrimSpace(document.Metadata.Modified),
			Title:            cleanOutlineText(document.Metadata.Title),
			UnappliedEffects: len(document.Metadata.UnappliedEffects),
		}
	}

	if document.Contents == nil {
		return outline, nil
	}

	// Pass 1: bare top-level items outside any Part or Schedule.
	for index, item := range document.Contents.Items {
		outline.Roots = append(outline.Roots, itemNode(item, fallbackID("item", index), 0))
	}

	// Pass 2: Parts with their children attached in source order.
	for index, part := range document.Contents.Parts {
		partNode := &Node{
			ID:          nonEmpty(part.ContentRef, fallbackID("part", index)),
			Number:      cleanOutlineText(part.Number),
			Title:       cleanOutlineText(part.Title),
			DocumentURI: part.DocumentURI,
			Status:      part.Status,
			Level:       0,
		}
		children := part.Items
		for _, block := range part.Blocks {
			children = append(children, block.Items...)
		}
		for childIndex, child := range children {
			partNode.Children = append(partNode.Children,
				itemNode(child, partNode.ID+"-item-"+fmt.Sprint(childIndex), 1))
		}
		outline.Roots = append(outline.Roots, partNode)
	}

	// Pass 3: Schedules, both direct and grouped, with their children.
	schedules := document.Contents.Schedules
	for _, group := range document.Contents.ScheduleGroups {
		schedules = append(schedules, group.Schedules...)
	}
	for index, schedule := range schedules {
		scheduleNode := &Node{
			ID:          nonEmpty(schedule.ContentRef, fallbackID("schedule", index)),
			Number:      cleanOutlineText(schedule.Number),
			Title:       cleanOutlineText(schedule.Title),
			DocumentURI: schedule.DocumentURI,
			Status:      schedule.Status,
			Level:       0,
		}
		for childIndex, child := range schedule.Items {
			scheduleNode.Children = append(scheduleNode.Children,
				itemNode(child, scheduleNode.ID+"-item-"+fmt.Sprint(childIndex), 1))
		}
		outline.Roots = append(outline.Roots, scheduleNode)
	}

	return outline, nil
}

func parseContents(payload []byte) (*contentsDocument, error) {
	decoder := xml.NewDecoder(strings.NewReader(string(payload)))
	decoder.Strict = false

	document := &contentsDocument{}
	if err := decoder.Decode(document); err != nil {
		return nil, fmt.Errorf("failed to parse contents XML: %w", err)
	}
	return document, nil
}

func itemNode(item contentsItem, fallback string, level int) *Node {
	return &Node{
		ID:          nonEmpty(item.ContentRef, fallback),
		Number:      cleanOutlineText(item.Number),
		Title:       cleanOutlineText(item.Title),
		DocumentURI: item.DocumentURI,
		Status:      item.Status,
		Level:       level,
	}
}

// fallbackID synthesizes a deterministic identifier from a node's structural
// position, so re-parsing the same outline yields stable IDs.
func fallbackID(pass string, index int) string {
	return fmt.Sprintf("%s-%d", pass, index)
}

func nonEmpty(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}

// cleanOutlineText strips editorial footnote markers and collapses
// whitespace.
func cleanOutlineText(text string) string {
	text = footnoteMarker.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}
