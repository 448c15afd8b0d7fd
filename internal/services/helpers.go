package services

import (
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
)

// Clock returns the current instant. Services take one so tests can pin time.
type Clock func() time.Time

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func systemClock(now Clock) Clock {
	if now == nil {
		return time.Now
	}
	return now
}

func locationOrLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

// storeError wraps a persistence failure.
func storeError(err error) error {
	return apperrors.Wrap(apperrors.ErrStoreUnavailable, err)
}

// isDuplicateKey reports whether err is a unique constraint violation.
// TranslateError covers postgres and sqlite; MySQL errors are matched by number
// in case a caller opened the connection without translation.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

func validMonthYear(month, year int) bool {
	return month >= 1 && month <= 12 && year >= 1
}
