// Package mysql provides a MySQL implementation of the recharge.Catalog interface.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	recharge "github.com/Tarunvoff/mobile-backend"
)

// MySQLCatalog implements the recharge.Catalog interface using MySQL.
// Plans are stored as a JSON column on the operators table since they are
// only ever read through their operator.
type MySQLCatalog struct {
	db *sql.DB
}

var _ recharge.Catalog = (*MySQLCatalog)(nil)

// New creates a new MySQLCatalog with the given database connection.
func New(db *sql.DB) *MySQLCatalog {
	return &MySQLCatalog{db: db}
}

const operatorColumns = `name, code, service_type, logo, plans`

// FindOperator returns the operator with the given code.
func (c *MySQLCatalog) FindOperator(ctx context.Context, code string) (*recharge.Operator, error) {
	query := fmt.Sprintf("SELECT %s FROM operators WHERE code = ?", operatorColumns)

	op, err := scanOperator(c.db.QueryRowContext(ctx, query, strings.ToUpper(code)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %q", recharge.ErrOperatorNotFound, code)
		}
		return nil, fmt.Errorf("%w: find operator: %v", recharge.ErrCatalogUnavailable, err)
	}
	return op, nil
}

// ListOperators returns the operators serving the given service type, or all
// operators when serviceType is empty.
func (c *MySQLCatalog) ListOperators(ctx context.Context, serviceType recharge.ServiceType) ([]*recharge.Operator, error) {
	query := fmt.Sprintf("SELECT %s FROM operators", operatorColumns)
	var args []interface{}
	if serviceType != "" {
		query += " WHERE service_type = ?"
		args = append(args, serviceType)
	}
	query += " ORDER BY name ASC"

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list operators: %v", recharge.ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	var operators []*recharge.Operator
	for rows.Next() {
		op, err := scanOperator(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan operator: %v", recharge.ErrCatalogUnavailable, err)
		}
		operators = append(operators, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate operators: %v", recharge.ErrCatalogUnavailable, err)
	}

	return operators, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOperator(row rowScanner) (*recharge.Operator, error) {
	op := &recharge.Operator{}
	var plansJSON sql.NullString

	err := row.Scan(&op.Name, &op.Code, &op.ServiceType, &op.Logo, &plansJSON)
	if err != nil {
		return nil, err
	}

	if plansJSON.Valid && plansJSON.String != "" {
		if err := json.Unmarshal([]byte(plansJSON.String), &op.Plans); err != nil {
			return nil, fmt.Errorf("unmarshal plans: %w", err)
		}
	}
	return op, nil
}
