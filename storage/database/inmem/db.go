package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/feedback"
	"github.com/trezcool/shule/core/leave"
	"github.com/trezcool/shule/core/result"
)

type tables struct {
	accounts  map[string]account.Account
	profiles  map[string]account.Profile // by account ID
	courses   map[string]academic.Course
	subjects  map[string]academic.Subject
	semesters map[string]academic.Semester
	sessions  map[string]attendance.Session
	records   map[string]attendance.Record
	leaves    map[string]leave.Leave
	feedback  map[string]feedback.Feedback
	results   map[string]result.Result
}

func newTables() *tables {
	return &tables{
		accounts:  make(map[string]account.Account),
		profiles:  make(map[string]account.Profile),
		courses:   make(map[string]academic.Course),
		subjects:  make(map[string]academic.Subject),
		semesters: make(map[string]academic.Semester),
		sessions:  make(map[string]attendance.Session),
		records:   make(map[string]attendance.Record),
		leaves:    make(map[string]leave.Leave),
		feedback:  make(map[string]feedback.Feedback),
		results:   make(map[string]result.Result),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func (t *tables) clone() *tables {
	return &tables{
		accounts:  cloneMap(t.accounts),
		profiles:  cloneMap(t.profiles),
		courses:   cloneMap(t.courses),
		subjects:  cloneMap(t.subjects),
		semesters: cloneMap(t.semesters),
		sessions:  cloneMap(t.sessions),
		records:   cloneMap(t.records),
		leaves:    cloneMap(t.leaves),
		feedback:  cloneMap(t.feedback),
		results:   cloneMap(t.results),
	}
}

// DB is an in-memory store backing every repository of this package.
type DB struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	t    *tables
}

func Open() *DB {
	return &DB{t: newTables()}
}

// Reset drops every row.
func (db *DB) Reset() {
	db.mu.Lock()
	db.t = newTables()
	db.mu.Unlock()
}

func (db *DB) PingContext(context.Context) error { return nil }

type txRunner struct {
	db *DB
}

var _ core.TxRunner = (*txRunner)(nil) // interface compliance check

func NewTxRunner(db *DB) core.TxRunner {
	return &txRunner{db: db}
}

// InTx serializes transactions and restores a snapshot of every table when fn fails.
// Writes made outside a transaction while fn runs are lost on rollback.
func (r txRunner) InTx(_ context.Context, fn func(exec core.DBExecutor) error) (err error) {
	r.db.txMu.Lock()
	defer r.db.txMu.Unlock()

	r.db.mu.RLock()
	snapshot := r.db.t.clone()
	r.db.mu.RUnlock()

	rollback := func() {
		r.db.mu.Lock()
		r.db.t = snapshot
		r.db.mu.Unlock()
	}
	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err = fn(nil); err != nil {
		rollback()
	}
	return err
}
