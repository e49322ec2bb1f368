package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/username/typing-booster/internal/candidate"
	"github.com/username/typing-booster/internal/compose"
	"github.com/username/typing-booster/internal/config"
	"github.com/username/typing-booster/internal/dictionary"
	"github.com/username/typing-booster/internal/keymap"
	"github.com/username/typing-booster/internal/transliteration"
	"github.com/username/typing-booster/internal/userdb"
)

// Property keys registered with the host.
const (
	PropInputMode    = "InputMode"
	PropOffTheRecord = "OffTheRecord"
	PropNotice       = "Notice"
)

// softDeadline is how long a candidate job may run before the busy
// indicator shows. The job itself is never killed.
const softDeadline = 500 * time.Millisecond

// Engine composes every subsystem and runs the single-threaded event
// loop. All state below the message channel is loop-owned: nothing
// outside the loop touches it.
type Engine struct {
	host     Host
	cfgStore *config.Store
	db       *userdb.DB
	dicts    *dictionary.Set
	composeTable *compose.Table
	producer *candidate.Engine
	logger   *slog.Logger

	msgs chan message

	// Everything below is owned by the event loop goroutine.

	cfg        *config.Config // focused-client derived snapshot
	baseVersion uint64
	km         *keymap.KeyMap
	translit   *transliteration.Set
	composer   *compose.Engine

	preedit    Preedit
	candidates []candidate.Candidate
	selected   int
	page       int
	lookupVisible bool
	inlineText string

	context1, context2 string

	latestJob   uint64
	jobPending  bool
	busyShown   bool

	clientID         string
	focused          bool
	enabled          bool
	inputMode        bool
	commitsThisFocus int
	commitLog        []string

	surroundingText   string
	surroundingCursor int
	surroundingTrusted bool

	availableKeysyms map[uint32]bool

	producerJobs chan candidate.Request
}

// message is one event-loop input.
type message interface{}

type keyMsg struct {
	ev    keymap.KeyEvent
	reply chan bool
}

type candidateMsg struct {
	res candidate.Result
}

type debounceMsg struct {
	job uint64
}

type busyMsg struct {
	job uint64
}

type focusInMsg struct {
	clientID string
}

type focusOutMsg struct{}

type surroundingMsg struct {
	text           string
	cursor, anchor int
}

type enableMsg struct {
	on bool
}

type propertyMsg struct {
	name  string
	state bool
}

type reloadMsg struct{}

type keysymsMsg struct {
	available map[uint32]bool
}

type stopMsg struct {
	done chan struct{}
}

// New wires an engine. Run must be called before any host events are
// delivered.
func New(host Host, cfgStore *config.Store, db *userdb.DB, dicts *dictionary.Set,
	producer *candidate.Engine, composeTable *compose.Table, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		host:         host,
		cfgStore:     cfgStore,
		db:           db,
		dicts:        dicts,
		producer:     producer,
		composeTable: composeTable,
		logger:       logger,
		msgs:         make(chan message, 64),
		producerJobs: make(chan candidate.Request, 1),
		selected:     -1,
		enabled:      true,
		inputMode:    true,
	}
	e.reconfigure(cfgStore.Current())
	return e
}

// Run processes events until ctx is done. It starts the candidate
// producer worker; UserDB writes already run on the store's own
// writer.
func (e *Engine) Run(ctx context.Context) {
	go e.produceLoop(ctx)

	decay := time.NewTicker(24 * time.Hour)
	defer decay.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-decay.C:
			e.db.DecayPass()
		case m := <-e.msgs:
			// A fresh global config publishes between events.
			if cur := e.cfgStore.Current(); cur.Version != e.baseVersion {
				e.reconfigure(cur)
			}
			e.dispatch(m)
		}
	}
}

func (e *Engine) dispatch(m message) {
	defer e.recoverInvariant()
	switch m := m.(type) {
	case keyMsg:
		m.reply <- e.handleKey(m.ev)
	case candidateMsg:
		e.handleCandidateResult(m.res)
	case debounceMsg:
		e.handleDebounce(m.job)
	case busyMsg:
		e.handleBusy(m.job)
	case focusInMsg:
		e.handleFocusIn(m.clientID)
	case focusOutMsg:
		e.handleFocusOut()
	case surroundingMsg:
		e.handleSurrounding(m.text, m.cursor, m.anchor)
	case enableMsg:
		e.enabled = m.on
		if !m.on {
			e.clearAll()
		}
	case propertyMsg:
		e.handleProperty(m.name, m.state)
	case reloadMsg:
		e.reconfigure(e.cfgStore.Current())
	case keysymsMsg:
		e.availableKeysyms = m.available
	case stopMsg:
		close(m.done)
	}
}

// recoverInvariant is the last line of defense: an invariant violation
// clears the current preedit and returns to Empty. Committed data is
// never affected; the user loses at most the preedit in flight.
func (e *Engine) recoverInvariant() {
	if r := recover(); r != nil {
		e.logger.Error("internal error, clearing preedit",
			"panic", r, "client", e.clientID)
		e.clearAll()
	}
}

// produceLoop is the candidate producer worker: one job at a time,
// results posted back to the event loop tagged with the job id.
func (e *Engine) produceLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-e.producerJobs:
			res := e.producer.Produce(req)
			select {
			case e.msgs <- candidateMsg{res: res}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// submitJob hands a request to the producer, replacing any job still
// queued: the stale job's result would be dropped by id anyway.
func (e *Engine) submitJob(req candidate.Request) {
	for {
		select {
		case e.producerJobs <- req:
			e.jobPending = true
			job := req.JobID
			time.AfterFunc(softDeadline, func() { e.post(busyMsg{job: job}) })
			return
		default:
			select {
			case <-e.producerJobs:
			default:
			}
		}
	}
}

// post delivers a message to the loop; the buffer absorbs bursts. The
// send blocks while the buffer is full, including after Run has returned.
func (e *Engine) post(m message) {
	e.msgs <- m
}

// --- external surface, called from host goroutines ---

// ProcessKeyEvent routes one key event through the loop and reports
// whether the engine consumed it.
func (e *Engine) ProcessKeyEvent(ev keymap.KeyEvent) bool {
	reply := make(chan bool, 1)
	e.post(keyMsg{ev: ev, reply: reply})
	return <-reply
}

// FocusIn announces the focused client.
func (e *Engine) FocusIn(clientID string) { e.post(focusInMsg{clientID: clientID}) }

// FocusOut announces focus loss.
func (e *Engine) FocusOut() { e.post(focusOutMsg{}) }

// SetSurroundingText updates the host-reported text around the cursor.
func (e *Engine) SetSurroundingText(text string, cursor, anchor int) {
	e.post(surroundingMsg{text: text, cursor: cursor, anchor: anchor})
}

// Enable turns the engine on.
func (e *Engine) Enable() { e.post(enableMsg{on: true}) }

// Disable turns the engine off, discarding the preedit.
func (e *Engine) Disable() { e.post(enableMsg{on: false}) }

// PropertyActivate toggles a registered property.
func (e *Engine) PropertyActivate(name string, state bool) {
	e.post(propertyMsg{name: name, state: state})
}

// Reload re-reads the current configuration snapshot.
func (e *Engine) Reload() { e.post(reloadMsg{}) }

// SetAvailableKeysyms records the keysyms typable on the reported
// keyboard layout, for compose completions.
func (e *Engine) SetAvailableKeysyms(available map[uint32]bool) {
	e.post(keysymsMsg{available: available})
}

// Drain waits until every message queued before the call has been
// processed. Test helper.
func (e *Engine) Drain() {
	done := make(chan struct{})
	e.post(stopMsg{done: done})
	<-done
}

// reconfigure applies a configuration snapshot: keymap, input methods,
// store modes. Called between events only.
func (e *Engine) reconfigure(cfg *config.Config) {
	e.baseVersion = cfg.Version
	if e.clientID != "" {
		cfg = config.ApplyAutoSettings(cfg, e.clientID)
	}
	e.cfg = cfg

	table := make(map[keymap.Command][]string, len(cfg.Keybindings))
	for cmd, combos := range cfg.Keybindings {
		table[keymap.Command(cmd)] = combos
	}
	km, errs := keymap.New(table)
	for _, err := range errs {
		e.logger.Warn("keybinding ignored", "error", err)
	}
	e.km = km

	e.translit = transliteration.NewSet(cfg.InputMethods, e.logger)
	e.composer = compose.NewEngine(e.composeTable)

	e.db.SetOffTheRecord(cfg.OffTheRecord)
	e.db.SetRecordMode(userdb.RecordMode(cfg.RecordMode))
	e.inputMode = cfg.InputMode
}
