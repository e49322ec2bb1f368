package candidate

import (
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/username/typing-booster/internal/compose"
	"github.com/username/typing-booster/internal/dictionary"
	"github.com/username/typing-booster/internal/emoji"
	"github.com/username/typing-booster/internal/keymap"
	"github.com/username/typing-booster/internal/userdb"
)

// Base scores per pipeline stage. UserDB scores pass through Score()
// and sit above these; dictionary completions, spell corrections and
// emoji are appended with descending bases so unseeded lists keep the
// spec ordering.
const (
	dictionaryBase = 10.0
	spellcheckBase = 5.0
	emojiBase      = 3.0
	composeBase    = 1.0

	// userDBScale lifts learned entries above dictionary completions.
	userDBScale = 100.0
)

// Request describes one candidate production job.
type Request struct {
	// JobID tags the production; the event loop drops results whose id
	// is no longer the latest.
	JobID uint64

	// PrefixViews are the per-input-method renderings of the preedit.
	PrefixViews []string
	// Context1 and Context2 are the previous commits, newest first.
	Context1, Context2 string

	// EmojiMode includes emoji even without a trigger character.
	EmojiMode bool
	// TriggerChars force emoji lookup when leading/trailing the query.
	TriggerChars string

	// PageSize bounds one page; production fetches pageSize*2 before
	// falling through to weaker sources.
	PageSize int

	// ComposePrefix, when a compose sequence is live, requests
	// compose completions restricted to AvailableKeysyms.
	ComposePrefix    []uint32
	AvailableKeysyms map[uint32]bool
}

// Result is a finished production, tagged for reconciliation.
type Result struct {
	JobID      uint64
	Candidates []Candidate
}

// Engine queries all sources and assembles ranked candidate lists. It
// is safe for use from a single producer goroutine while the event loop
// continues.
type Engine struct {
	db      *userdb.DB
	dicts   *dictionary.Set
	emojis  *emoji.Index
	compose *compose.Table
	logger  *slog.Logger
}

// NewEngine wires the candidate sources.
func NewEngine(db *userdb.DB, dicts *dictionary.Set, emojis *emoji.Index, composeTable *compose.Table, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{db: db, dicts: dicts, emojis: emojis, compose: composeTable, logger: logger}
}

// Produce runs the full pipeline for one request.
func (e *Engine) Produce(req Request) Result {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 6
	}
	want := pageSize * 2

	var all []Candidate

	// Compose completions take over while a sequence is live.
	if len(req.ComposePrefix) > 0 {
		all = append(all, e.composeCompletions(req)...)
		return Result{JobID: req.JobID, Candidates: Merge(all)}
	}

	views := nonEmptyViews(req.PrefixViews)
	if len(views) == 0 {
		return Result{JobID: req.JobID}
	}

	emojiQuery, emojiForced := stripTrigger(views[0], req.TriggerChars)

	// 1. UserDB for each prefix view, in parallel.
	all = append(all, e.queryUserDB(views, req.Context1, req.Context2)...)

	// 2. Dictionary completions when the list is short.
	if len(all) < want && !emojiForced {
		all = append(all, e.queryDictionaries(views, want)...)
	}

	// 3. Spell corrections when still short.
	if countTexts(all) < want && !emojiForced {
		all = append(all, e.querySuggestions(views, want)...)
	}

	// 4. Emoji on demand.
	if req.EmojiMode || emojiForced {
		all = append(all, e.queryEmoji(emojiQuery, want)...)
	}

	// 5-7. Merge, sort, paginate (pagination happens at display time).
	return Result{JobID: req.JobID, Candidates: Merge(all)}
}

func nonEmptyViews(views []string) []string {
	out := make([]string, 0, len(views))
	seen := make(map[string]bool, len(views))
	for _, v := range views {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// stripTrigger detects and removes a leading or trailing emoji trigger
// character.
func stripTrigger(view, triggers string) (string, bool) {
	if triggers == "" || view == "" {
		return view, false
	}
	runes := []rune(view)
	if strings.ContainsRune(triggers, runes[0]) {
		return string(runes[1:]), true
	}
	if strings.ContainsRune(triggers, runes[len(runes)-1]) {
		return string(runes[:len(runes)-1]), true
	}
	return view, false
}

func countTexts(cands []Candidate) int {
	seen := make(map[string]bool, len(cands))
	for _, c := range cands {
		seen[c.Text] = true
	}
	return len(seen)
}

func (e *Engine) queryUserDB(views []string, c1, c2 string) []Candidate {
	if e.db == nil {
		return nil
	}
	results := make([][]Candidate, len(views))
	var eg errgroup.Group
	for i, view := range views {
		i, view := i, view
		eg.Go(func() error {
			rows, err := e.db.Lookup(view, c1, c2)
			if err != nil {
				return err
			}
			cands := make([]Candidate, 0, len(rows))
			for _, r := range rows {
				cands = append(cands, Candidate{
					Text:   r.Entry.Phrase,
					Source: SourceUserDB,
					Score:  userDBScale * r.Score,
				})
			}
			results[i] = cands
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		// Failed source degrades to fewer candidates.
		e.logger.Warn("user db query failed", "error", err)
	}
	var all []Candidate
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

func (e *Engine) queryDictionaries(views []string, limit int) []Candidate {
	if e.dicts == nil {
		return nil
	}
	var all []Candidate
	for _, view := range views {
		words := e.dicts.Lookup(view, limit)
		for rank, w := range words {
			all = append(all, Candidate{
				Text:   w,
				Source: SourceDictionary,
				Score:  dictionaryBase - float64(rank)*0.01,
			})
		}
	}
	return all
}

func (e *Engine) querySuggestions(views []string, limit int) []Candidate {
	if e.dicts == nil {
		return nil
	}
	var all []Candidate
	for _, view := range views {
		words := e.dicts.Suggest(view, limit)
		for rank, w := range words {
			all = append(all, Candidate{
				Text:   w,
				Source: SourceSpellcheck,
				Score:  spellcheckBase - float64(rank)*0.01,
			})
		}
	}
	return all
}

func (e *Engine) queryEmoji(query string, limit int) []Candidate {
	if e.emojis == nil || strings.TrimSpace(query) == "" {
		return nil
	}
	hits := e.emojis.Query(query, limit)
	cands := make([]Candidate, 0, len(hits))
	for _, h := range hits {
		cands = append(cands, Candidate{
			Text:       h.Entry.Sequence,
			Source:     SourceEmoji,
			Score:      emojiBase * h.Score / (h.Score + 1),
			Annotation: h.Name + " " + h.Entry.Annotation(),
		})
	}
	return cands
}

// Related produces the related-emoji list for a committed or selected
// sequence.
func (e *Engine) Related(seq string, limit int) []Candidate {
	if e.emojis == nil {
		return nil
	}
	hits := e.emojis.Related(seq, limit)
	cands := make([]Candidate, 0, len(hits))
	for _, h := range hits {
		cands = append(cands, Candidate{
			Text:       h.Entry.Sequence,
			Source:     SourceRelated,
			Score:      h.Score,
			Annotation: h.Name + " " + h.Entry.Annotation(),
		})
	}
	return Merge(cands)
}

func (e *Engine) composeCompletions(req Request) []Candidate {
	if e.compose == nil {
		return nil
	}
	comps := e.compose.Load().Completions(req.ComposePrefix, req.AvailableKeysyms)
	cands := make([]Candidate, 0, len(comps))
	for i, c := range comps {
		var keys []string
		for _, sym := range c.Remaining {
			keys = append(keys, keymap.KeysymName(sym))
		}
		cands = append(cands, Candidate{
			Text:       c.Result,
			Source:     SourceCompose,
			Score:      composeBase - float64(i)*0.001,
			Annotation: strings.Join(keys, " "),
		})
	}
	return cands
}

// Inline reports the inline suggestion when the top candidate clears
// the confidence threshold and strictly extends the canonical prefix.
func Inline(cands []Candidate, prefix string, threshold float64) (string, bool) {
	if len(cands) == 0 {
		return "", false
	}
	top := cands[0]
	if top.Score < threshold {
		return "", false
	}
	if len(top.Text) <= len(prefix) || !strings.HasPrefix(top.Text, prefix) {
		return "", false
	}
	return top.Text, true
}
