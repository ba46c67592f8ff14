package page

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/semlight/internal/scoring"
	"golang.org/x/net/html"
)

const samplePage = `<!DOCTYPE html>
<html><head><title>A very long page title here</title>
<style>.x { color: red; } /* long enough style text */</style></head>
<body>
<h1>Short</h1>
<p>Deep learning models train on large datasets.</p>
<script>var longScriptVariable = "should never be scored";</script>
<noscript>Please enable JavaScript to continue.</noscript>
<div><span>I had cereal for breakfast today.</span></div>
</body></html>`

// keywordScorer gives 0.9 to passages containing the topic's first word, 0.1 otherwise.
type keywordScorer struct {
	calls int
	seen  []string
	err   error
}

func (k *keywordScorer) Score(ctx context.Context, topic string, passages []string) ([]scoring.ScoredPassage, error) {
	k.calls++
	k.seen = passages
	if k.err != nil {
		return nil, k.err
	}
	word := strings.ToLower(strings.Fields(topic)[0])
	out := make([]scoring.ScoredPassage, len(passages))
	for i, p := range passages {
		s := 0.1
		if strings.Contains(strings.ToLower(p), word) {
			s = 0.9
		}
		out[i] = scoring.ScoredPassage{Text: p, Score: s}
	}
	return out, nil
}

func parse(t *testing.T, s string) *html.Node {
	t.Helper()
	root, err := html.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatal(err)
	}
	return root
}

func TestExtractPassages(t *testing.T) {
	got := Texts(ExtractPassages(parse(t, samplePage), DefaultMinPassageLength))
	want := []string{
		"Deep learning models train on large datasets.",
		"I had cereal for breakfast today.",
	}
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("passage %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractPassages_lengthBoundary(t *testing.T) {
	root := parse(t, "<p>0123456789</p><p>0123456789A</p><p>   padded    </p>")
	got := Texts(ExtractPassages(root, 10))
	if len(got) != 1 || got[0] != "0123456789A" {
		t.Errorf("only text longer than 10 runes should pass, got %q", got)
	}
}

func TestExtractPassages_uniqueIDs(t *testing.T) {
	ps := ExtractPassages(parse(t, samplePage), 0)
	seen := map[string]bool{}
	for _, p := range ps {
		if p.ID == "" || seen[p.ID] {
			t.Fatalf("duplicate or empty id %q", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestHighlighter_Highlight(t *testing.T) {
	sc := &keywordScorer{}
	h := NewHighlighter(sc, WithThreshold(0.5))
	res, err := h.Highlight(context.Background(), strings.NewReader(samplePage), "learning")
	if err != nil {
		t.Fatal(err)
	}
	if sc.calls != 1 || len(sc.seen) != 2 {
		t.Fatalf("scorer calls=%d passages=%v", sc.calls, sc.seen)
	}
	if res.Highlighted != 1 {
		t.Errorf("Highlighted=%d, want 1", res.Highlighted)
	}
	if !res.Passages[0].Highlighted || res.Passages[1].Highlighted {
		t.Errorf("wrong passages marked: %+v", res.Passages)
	}
	if !strings.Contains(res.HTML, `<span class="semantic-highlight" data-score="0.9000"`) {
		t.Errorf("missing wrapper in %s", res.HTML)
	}
	if strings.Count(res.HTML, "semantic-highlight") != 1 {
		t.Errorf("expected one wrapper in %s", res.HTML)
	}
	if !strings.Contains(res.HTML, "should never be scored") {
		t.Error("script content should be preserved")
	}
}

func TestHighlighter_rehighlightReplacesOldMarks(t *testing.T) {
	h := NewHighlighter(&keywordScorer{}, WithThreshold(0.5))
	first, err := h.Highlight(context.Background(), strings.NewReader(samplePage), "learning")
	if err != nil {
		t.Fatal(err)
	}
	second, err := h.Highlight(context.Background(), strings.NewReader(first.HTML), "cereal")
	if err != nil {
		t.Fatal(err)
	}
	if second.Cleared != 1 {
		t.Errorf("Cleared=%d, want 1", second.Cleared)
	}
	if second.Highlighted != 1 || !second.Passages[1].Highlighted {
		t.Errorf("second highlight wrong: %+v", second.Passages)
	}
	if strings.Count(second.HTML, "semantic-highlight") != 1 {
		t.Errorf("old marks not cleared: %s", second.HTML)
	}
}

func TestHighlighter_scorerError(t *testing.T) {
	boom := errors.New("model load failure")
	h := NewHighlighter(&keywordScorer{err: boom})
	if _, err := h.Highlight(context.Background(), strings.NewReader(samplePage), "x"); !errors.Is(err, boom) {
		t.Errorf("got %v", err)
	}
}

func TestHighlighter_Clear(t *testing.T) {
	in := `<p>before <span class="other semantic-highlight" data-score="0.8">marked text</span> after</p>`
	h := NewHighlighter(&keywordScorer{})
	out, n, err := h.Clear(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("cleared %d, want 1", n)
	}
	if strings.Contains(out, "span") {
		t.Errorf("span not removed: %s", out)
	}
	if !strings.Contains(out, "<p>before marked text after</p>") {
		t.Errorf("text not merged back: %s", out)
	}
}

func TestVisibleText(t *testing.T) {
	got := VisibleText(parse(t, samplePage))
	if strings.Contains(got, "longScriptVariable") || strings.Contains(got, "color: red") {
		t.Errorf("hidden text leaked: %q", got)
	}
	if !strings.Contains(got, "Short") || !strings.Contains(got, "breakfast") {
		t.Errorf("visible text missing: %q", got)
	}
}
