// Package userdb is the persistent learning store: phrase frequencies
// keyed by up-to-two committed context tokens, with time decay.
//
// Reads run directly against the sqlite file; writes are serialized
// through a single writer goroutine so the event loop never blocks on
// the store.
package userdb

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

const (
	schemaVersion = 1

	// DefaultCeiling caps the number of stored entries.
	DefaultCeiling = 50000

	// purgeAge and purgeEpsilon govern decay_pass removal.
	purgeAge     = 180 * 24 * time.Hour
	purgeEpsilon = 0.25
)

// RecordMode controls which commits are recorded.
type RecordMode int

const (
	// RecordEverything records every commit.
	RecordEverything RecordMode = iota
	// RecordCorrectOrKnown records commits that spellcheck or are
	// already present in the store.
	RecordCorrectOrKnown
	// RecordCorrect records only commits that spellcheck.
	RecordCorrect
	// RecordNothing disables recording.
	RecordNothing
)

// ErrCorrupt marks a store file that failed the open-time checks.
var ErrCorrupt = errors.New("user database corrupt")

// Entry is one row of the store.
type Entry struct {
	Phrase    string
	Context1  string
	Context2  string
	Frequency int64
	Timestamp time.Time
	UserFreq  float64
}

// Options tune an opened store.
type Options struct {
	// Ceiling caps stored entries; 0 means DefaultCeiling.
	Ceiling int
	// Validator reports whether a phrase spellchecks against at least
	// one loaded dictionary. Required for the correctness record
	// modes; nil treats every phrase as unknown.
	Validator func(phrase string) bool
	// Logger for store events. Nil uses slog.Default.
	Logger *slog.Logger
	// Now supplies the clock, for tests. Nil uses time.Now.
	Now func() time.Time
}

// DB is the user store handle.
type DB struct {
	db      *sql.DB
	path    string
	ceiling int
	logger  *slog.Logger
	now     func() time.Time

	validator func(string) bool

	offTheRecord atomic.Bool
	recordMode   atomic.Int32

	// quarantined is set once when the previous file was renamed away
	// at open; the engine turns it into a one-shot user notice.
	quarantined atomic.Bool

	writer *writer
}

// Open opens (or creates) the store at path, migrating the schema as
// needed. A corrupt file is quarantined by rename and a fresh store is
// opened in its place.
func Open(path string, opts Options) (*DB, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	ceiling := opts.Ceiling
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	d := &DB{
		path:      path,
		ceiling:   ceiling,
		logger:    logger,
		now:       nowFn,
		validator: opts.Validator,
	}

	db, err := openAndMigrate(path)
	if err != nil {
		logger.Error("user database unusable, quarantining",
			"path", path, "error", err)
		if qerr := quarantine(path, nowFn()); qerr != nil {
			return nil, fmt.Errorf("%w: quarantine failed: %v", ErrCorrupt, qerr)
		}
		d.quarantined.Store(true)
		db, err = openAndMigrate(path)
		if err != nil {
			return nil, fmt.Errorf("reopen after quarantine: %w", err)
		}
	}
	d.db = db
	d.writer = startWriter(d)
	return d, nil
}

func openAndMigrate(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// The writer goroutine is the only writer; readers share the one
	// connection pool with WAL snapshots.
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	var integrity string
	if err := db.QueryRow(`PRAGMA integrity_check`).Scan(&integrity); err != nil || integrity != "ok" {
		db.Close()
		return nil, fmt.Errorf("%w: integrity check: %v %q", ErrCorrupt, err, integrity)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS phrases (
			phrase    TEXT NOT NULL,
			c1        TEXT NOT NULL DEFAULT '',
			c2        TEXT NOT NULL DEFAULT '',
			frequency INTEGER NOT NULL DEFAULT 0,
			timestamp INTEGER NOT NULL,
			user_freq REAL NOT NULL DEFAULT 0,
			PRIMARY KEY (phrase, c1, c2)
		);
		CREATE INDEX IF NOT EXISTS idx_phrases_phrase ON phrases(phrase);
	`)
	if err != nil {
		return fmt.Errorf("%w: create schema: %v", ErrCorrupt, err)
	}

	var version int
	err = db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = db.Exec(`INSERT INTO meta (key, value) VALUES ('schema_version', ?)`,
			strconv.Itoa(schemaVersion))
		if err != nil {
			return fmt.Errorf("write schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("%w: read schema version: %v", ErrCorrupt, err)
	case version > schemaVersion:
		return fmt.Errorf("%w: schema version %d is newer than supported %d",
			ErrCorrupt, version, schemaVersion)
	}
	return nil
}

func quarantine(path string, now time.Time) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	dest := fmt.Sprintf("%s.corrupt-%d", path, now.Unix())
	// WAL sidecars go with the main file so the fresh store starts clean.
	for _, suffix := range []string{"-wal", "-shm"} {
		os.Rename(path+suffix, dest+suffix)
	}
	return os.Rename(path, dest)
}

// Quarantined reports (once) that the previous store file was
// quarantined at open.
func (d *DB) Quarantined() bool {
	return d.quarantined.Swap(false)
}

// SetOffTheRecord toggles off-the-record mode: recording becomes a
// no-op while lookups continue.
func (d *DB) SetOffTheRecord(on bool) {
	d.offTheRecord.Store(on)
}

// OffTheRecord reports the current off-the-record state.
func (d *DB) OffTheRecord() bool {
	return d.offTheRecord.Load()
}

// SetRecordMode selects which commits get recorded.
func (d *DB) SetRecordMode(mode RecordMode) {
	d.recordMode.Store(int32(mode))
}

// shouldRecord applies off-the-record and the record mode.
func (d *DB) shouldRecord(phrase string) bool {
	if d.offTheRecord.Load() {
		return false
	}
	switch RecordMode(d.recordMode.Load()) {
	case RecordNothing:
		return false
	case RecordCorrect:
		return d.validates(phrase)
	case RecordCorrectOrKnown:
		return d.validates(phrase) || d.knows(phrase)
	}
	return true
}

func (d *DB) validates(phrase string) bool {
	return d.validator != nil && d.validator(phrase)
}

func (d *DB) knows(phrase string) bool {
	var one int
	err := d.db.QueryRow(`SELECT 1 FROM phrases WHERE phrase = ? LIMIT 1`, phrase).Scan(&one)
	return err == nil
}

// RecordCommit upserts the (phrase, c1, c2) entry, bumping frequency
// and timestamp. The write is queued; the call never blocks on I/O.
func (d *DB) RecordCommit(phrase, context1, context2 string) {
	if phrase == "" || !d.shouldRecord(phrase) {
		return
	}
	d.writer.enqueue(opRecord{phrase: phrase, c1: context1, c2: context2, when: d.now()})
}

// Forget removes the entry and any context-variant rows for the phrase
// when contexts are empty, or the exact row otherwise.
func (d *DB) Forget(phrase, context1, context2 string) {
	d.writer.enqueue(opForget{phrase: phrase, c1: context1, c2: context2})
}

// DecayPass halves user_freq for entries older than the half-life and
// purges entries that decayed to noise. Queued like any write.
func (d *DB) DecayPass() {
	d.writer.enqueue(opDecay{when: d.now()})
}

// Flush blocks until all queued writes have been applied. Test and
// shutdown helper.
func (d *DB) Flush() {
	d.writer.flush()
}

// Close flushes the queue and closes the store.
func (d *DB) Close() error {
	d.writer.close()
	return d.db.Close()
}

// Result is a scored lookup hit.
type Result struct {
	Entry Entry
	Level ContextLevel
	Score float64
}

// Lookup returns entries whose phrase starts with prefix, scored by
// decayed frequency, recency and context match against (context1,
// context2). Results are ordered best first.
func (d *DB) Lookup(prefix, context1, context2 string) ([]Result, error) {
	if prefix == "" {
		return nil, nil
	}
	rows, err := d.db.Query(`
		SELECT phrase, c1, c2, frequency, timestamp, user_freq
		FROM phrases
		WHERE phrase >= ? AND phrase < ? AND user_freq > 0`,
		prefix, prefix+"￿")
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", prefix, err)
	}
	defer rows.Close()

	now := d.now()

	// Aggregate per phrase: every row contributes at unigram level,
	// rows matching c1 additionally at bigram level, and rows matching
	// both at trigram level.
	type accum struct {
		unigram, bigram, trigram float64
		latest                   int64
		frequency                int64
	}
	acc := make(map[string]*accum)

	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.Phrase, &e.Context1, &e.Context2, &e.Frequency, &ts, &e.UserFreq); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		a := acc[e.Phrase]
		if a == nil {
			a = &accum{}
			acc[e.Phrase] = a
		}
		a.unigram += e.UserFreq
		a.frequency += e.Frequency
		if ts > a.latest {
			a.latest = ts
		}
		if context1 != "" && e.Context1 == context1 {
			a.bigram += e.UserFreq
			if context2 != "" && e.Context2 == context2 {
				a.trigram += e.UserFreq
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lookup rows: %w", err)
	}

	results := make([]Result, 0, len(acc))
	for phrase, a := range acc {
		age := now.Sub(time.Unix(a.latest, 0))
		level, freq := Unigram, a.unigram
		for _, cand := range []struct {
			level ContextLevel
			freq  float64
		}{{Bigram, a.bigram}, {Trigram, a.trigram}} {
			if cand.freq > 0 && Score(cand.freq, age, cand.level) > Score(freq, age, level) {
				level, freq = cand.level, cand.freq
			}
		}
		results = append(results, Result{
			Entry: Entry{
				Phrase:    phrase,
				Frequency: a.frequency,
				Timestamp: time.Unix(a.latest, 0),
				UserFreq:  freq,
			},
			Level: level,
			Score: Score(freq, age, level),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Entry.Phrase < results[j].Entry.Phrase
	})
	return results, nil
}

// Count returns the number of stored entries.
func (d *DB) Count() (int, error) {
	var n int
	err := d.db.QueryRow(`SELECT count(*) FROM phrases`).Scan(&n)
	return n, err
}
