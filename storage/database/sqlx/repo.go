package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// postgres error codes
const (
	foreignKeyViolation       pq.ErrorCode = "23503"
	uniqueViolation           pq.ErrorCode = "23505"
	invalidTextRepresentation pq.ErrorCode = "22P02" // malformed uuid
)

type baseRepository struct {
	exec core.DBExecutor
}

func (repo baseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func pqError(err error) (*pq.Error, bool) {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return pqErr, ok
}

// trapNoRowsErr maps "no rows" and malformed ids to notFound.
func trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	if pqErr, ok := pqError(err); ok && pqErr.Code == invalidTextRepresentation {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// checkAffected reports notFound when an UPDATE matched no row.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// orderBy renders a safe ORDER BY clause; fields outside allowed are dropped.
func orderBy(ordering []core.DBOrdering, allowed []string, fallback string) string {
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		for _, field := range allowed {
			if ord.Field == field {
				parts = append(parts, ord.String())
				break
			}
		}
	}
	if len(parts) == 0 {
		return " ORDER BY " + fallback
	}
	return " ORDER BY " + strings.Join(parts, ", ") + ", id"
}
