package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "educonnect/internal/errors"
)

// mysqlKeyDoesNotExist is ER_KEY_DOES_NOT_EXITS, raised when a USE INDEX hint
// names an index the table lacks.
const mysqlKeyDoesNotExist = 1176

// ErrIndexMissing marks a query that needs a composite index the store does not have.
var ErrIndexMissing = errors.New("query requires a missing index")

// classify maps driver errors onto repository sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlKeyDoesNotExist {
		return fmt.Errorf("%w: %s", ErrIndexMissing, myErr.Message)
	}
	return err
}

// IsIndexMissing reports whether err signals a missing composite index.
func IsIndexMissing(err error) bool {
	return errors.Is(classify(err), ErrIndexMissing)
}

// hinted scopes db to table, asking MySQL to use index. Other dialects get the plain table.
func hinted(db *gorm.DB, table, index string) *gorm.DB {
	if db.Dialector != nil && db.Dialector.Name() == "mysql" {
		return db.Table(fmt.Sprintf("%s USE INDEX (%s)", table, index))
	}
	return db.Table(table)
}

// findWithIndexFallback runs the indexed query and, when the index is missing,
// retries with the unordered query and sorts client side. limit <= 0 keeps every row.
func findWithIndexFallback[T any](
	ctx context.Context,
	log *zap.Logger,
	name string,
	indexed func(ctx context.Context) ([]T, error),
	unordered func(ctx context.Context) ([]T, error),
	less func(a, b T) bool,
	limit int,
) ([]T, error) {
	rows, err := indexed(ctx)
	if err == nil {
		return rows, nil
	}
	if !IsIndexMissing(err) {
		return nil, classify(err)
	}

	if log != nil {
		log.Info("composite index missing, sorting client side", zap.String("query", name), zap.Error(err))
	}
	rows, err = unordered(ctx)
	if err != nil {
		return nil, classify(err)
	}
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}
