package warehouse

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"
	"github.com/rbpanama/idbhealth/internal/contract"
)

// MySQL server error numbers that mean the session itself is unusable.
var connectivityCodes = map[uint16]struct{}{
	1040: {}, // too many connections
	1045: {}, // access denied for user
	1053: {}, // server shutdown in progress
	1317: {}, // query execution was interrupted
	3024: {}, // max_execution_time exceeded
}

// classify wraps a driver error into the engine's error taxonomy.
// op describes the query, object the schema object it targeted.
func classify(op, object string, err error) error {
	if err == nil {
		return nil
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if _, ok := connectivityCodes[myErr.Number]; ok {
			return &contract.ConnectivityError{Op: op, Err: err}
		}
		if myErr.Number == 1054 {
			return &contract.IntrospectionError{Object: object, Err: fmt.Errorf("%w: %w", contract.ErrUnknownColumn, err)}
		}
		// 1044/1142 denied, 1049 unknown database, 1146 missing table, ...
		return &contract.IntrospectionError{Object: object, Err: err}
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, mysql.ErrInvalidConn),
		errors.Is(err, sql.ErrConnDone),
		errors.As(err, &netErr):
		return &contract.ConnectivityError{Op: op, Err: err}
	}
	return &contract.IntrospectionError{Object: object, Err: err}
}
