package core

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor is satisfied by *sqlx.DB and *sqlx.Tx.
	// Repositories accept an optional executor so services can run them inside a transaction.
	DBExecutor interface {
		sqlx.ExtContext
	}

	// TxRunner runs fn inside one storage transaction: committed if fn returns nil, rolled back otherwise.
	TxRunner interface {
		InTx(ctx context.Context, fn func(exec DBExecutor) error) error
	}

	Pinger interface {
		PingContext(ctx context.Context) error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
