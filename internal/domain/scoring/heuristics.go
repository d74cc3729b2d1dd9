package scoring

import (
	"context"
	"strings"

	"golang.org/x/net/html"

	"github.com/okian/genie/internal/domain/model"
)

// summary is what the built-in heuristics need from a parsed page.
type summary struct {
	hasDoctype   bool
	tags         map[string]int
	words        map[string]int
	elements     int
	inlineStyled int
	semantic     int
	title        string
	metaDesc     bool
	h1           int
	images       int
	imagesAlt    int
	lang         bool
}

var semanticTags = map[string]bool{ //nolint:gochecknoglobals // read-only lookup table
	"header": true, "nav": true, "main": true, "section": true,
	"article": true, "aside": true, "footer": true,
}

func summarize(markup string) summary {
	s := summary{tags: map[string]int{}, words: map[string]int{}}
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return s
	}
	var visit func(n *html.Node, inTitle, hidden bool)
	visit = func(n *html.Node, inTitle, hidden bool) {
		switch n.Type {
		case html.DoctypeNode:
			s.hasDoctype = true
		case html.ElementNode:
			s.elements++
			s.tags[n.Data]++
			if semanticTags[n.Data] {
				s.semantic++
			}
			for _, a := range n.Attr {
				switch {
				case a.Key == "style":
					s.inlineStyled++
				case n.Data == "html" && a.Key == "lang" && strings.TrimSpace(a.Val) != "":
					s.lang = true
				case n.Data == "meta" && a.Key == "name" && strings.EqualFold(a.Val, "description"):
					s.metaDesc = true
				}
			}
			switch n.Data {
			case "h1":
				s.h1++
			case "img":
				s.images++
				for _, a := range n.Attr {
					if a.Key == "alt" && strings.TrimSpace(a.Val) != "" {
						s.imagesAlt++
						break
					}
				}
			case "title":
				inTitle = true
			case "script", "style":
				hidden = true
			}
		case html.TextNode:
			if inTitle {
				s.title += strings.TrimSpace(n.Data)
			}
			if !hidden {
				for _, w := range strings.Fields(strings.ToLower(n.Data)) {
					s.words[w]++
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c, inTitle, hidden)
		}
	}
	visit(doc, false, false)
	return s
}

// overlap is the multiset Dice coefficient of a and b. Two empty sets overlap fully.
func overlap(a, b map[string]int) float64 {
	total := 0
	for _, v := range a {
		total += v
	}
	for _, v := range b {
		total += v
	}
	if total == 0 {
		return 1
	}
	common := 0
	for k, va := range a {
		if vb, ok := b[k]; ok {
			common += min(va, vb)
		}
	}
	return 2 * float64(common) / float64(total)
}

type heuristic struct {
	name string
	fn   func(task model.Task, page summary) float64
}

func (h heuristic) Name() string { return h.name }

func (h heuristic) Score(ctx context.Context, task model.Task, solutions []model.Solution) ([]float64, error) {
	out := make([]float64, len(solutions))
	for i, sol := range solutions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.fn(task, summarize(sol.Payload))
	}
	return out, nil
}

// VisualAccuracy compares a solution's text and element mix with the task's
// ground truth. Organic tasks without ground truth score zero.
func VisualAccuracy() Metric {
	return heuristic{name: MetricVisualAccuracy, fn: func(task model.Task, page summary) float64 {
		if task.GroundTruth == "" {
			return 0
		}
		ref := summarize(task.GroundTruth)
		return 0.5*overlap(ref.words, page.words) + 0.5*overlap(ref.tags, page.tags)
	}}
}

// StructuralQuality rewards a doctype, semantic sectioning and styles kept out of attributes.
func StructuralQuality() Metric {
	return heuristic{name: MetricStructuralQuality, fn: func(_ model.Task, page summary) float64 {
		if page.elements == 0 {
			return 0
		}
		doctype := 0.0
		if page.hasDoctype {
			doctype = 1
		}
		semantic := float64(min(page.semantic, 3)) / 3
		unstyled := 1 - float64(page.inlineStyled)/float64(page.elements)
		return (doctype + semantic + unstyled) / 3
	}}
}

// Discoverability checks the on-page signals search engines rely on.
func Discoverability() Metric {
	return heuristic{name: MetricDiscoverability, fn: func(_ model.Task, page summary) float64 {
		checks := []bool{
			page.title != "",
			page.metaDesc,
			page.h1 == 1,
			page.images == page.imagesAlt,
			page.lang,
		}
		passed := 0
		for _, ok := range checks {
			if ok {
				passed++
			}
		}
		return float64(passed) / float64(len(checks))
	}}
}
