package userdb

import (
	"time"
)

// The writer is the single goroutine applying mutations, so concurrent
// commits never contend on the sqlite file and the event loop never
// waits for a write.

type op interface{ apply(d *DB) }

type opRecord struct {
	phrase, c1, c2 string
	when           time.Time
}

type opForget struct {
	phrase, c1, c2 string
}

type opDecay struct {
	when time.Time
}

type opFlush struct {
	done chan struct{}
}

type writer struct {
	ops  chan op
	quit chan struct{}
}

const writerQueueDepth = 256

func startWriter(d *DB) *writer {
	w := &writer{
		ops:  make(chan op, writerQueueDepth),
		quit: make(chan struct{}),
	}
	go func() {
		defer close(w.quit)
		for o := range w.ops {
			o.apply(d)
		}
	}()
	return w
}

func (w *writer) enqueue(o op) {
	w.ops <- o
}

func (w *writer) flush() {
	done := make(chan struct{})
	w.ops <- opFlush{done: done}
	<-done
}

func (w *writer) close() {
	close(w.ops)
	<-w.quit
}

func (o opFlush) apply(*DB) { close(o.done) }

func (o opRecord) apply(d *DB) {
	_, err := d.db.Exec(`
		INSERT INTO phrases (phrase, c1, c2, frequency, timestamp, user_freq)
		VALUES (?, ?, ?, 1, ?, 1)
		ON CONFLICT (phrase, c1, c2) DO UPDATE SET
			frequency = frequency + 1,
			user_freq = user_freq + 1,
			timestamp = excluded.timestamp`,
		o.phrase, o.c1, o.c2, o.when.Unix())
	if err != nil {
		d.logger.Error("record commit failed", "phrase", o.phrase, "error", err)
		return
	}
	d.enforceCeiling()
}

func (o opForget) apply(d *DB) {
	var err error
	if o.c1 == "" && o.c2 == "" {
		// Forgetting without context removes the phrase everywhere.
		_, err = d.db.Exec(`DELETE FROM phrases WHERE phrase = ?`, o.phrase)
	} else {
		_, err = d.db.Exec(`DELETE FROM phrases WHERE phrase = ? AND c1 = ? AND c2 = ?`,
			o.phrase, o.c1, o.c2)
	}
	if err != nil {
		d.logger.Error("forget failed", "phrase", o.phrase, "error", err)
	}
}

func (o opDecay) apply(d *DB) {
	cutoff := o.when.Add(-HalfLife).Unix()
	if _, err := d.db.Exec(`UPDATE phrases SET user_freq = user_freq / 2 WHERE timestamp < ?`, cutoff); err != nil {
		d.logger.Error("decay pass failed", "error", err)
		return
	}
	purgeCutoff := o.when.Add(-purgeAge).Unix()
	if _, err := d.db.Exec(`DELETE FROM phrases WHERE user_freq < ? AND timestamp < ?`,
		purgeEpsilon, purgeCutoff); err != nil {
		d.logger.Error("decay purge failed", "error", err)
	}
}

// enforceCeiling evicts the weakest entries when the store grows past
// the configured ceiling.
func (d *DB) enforceCeiling() {
	var n int
	if err := d.db.QueryRow(`SELECT count(*) FROM phrases`).Scan(&n); err != nil || n <= d.ceiling {
		return
	}
	_, err := d.db.Exec(`
		DELETE FROM phrases WHERE rowid IN (
			SELECT rowid FROM phrases
			ORDER BY user_freq ASC, timestamp ASC
			LIMIT ?
		)`, n-d.ceiling)
	if err != nil {
		d.logger.Error("ceiling eviction failed", "error", err)
	}
}
