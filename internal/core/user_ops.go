// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"fmt"

	"github.com/xorq-labs/snowflake-keypair-helper/internal/warehouse"
)

const userAdminRole = "USERADMIN"

// CreateUser creates a service user, if missing, with a default warehouse.
func CreateUser(ctx context.Context, e Executor, user, defaultWarehouse string) ([]warehouse.Record, error) {
	if err := ValidateIdentifier("user", user); err != nil {
		return nil, err
	}
	if err := ValidateIdentifier("warehouse", defaultWarehouse); err != nil {
		return nil, err
	}
	records, err := e.Exec(ctx,
		"USE ROLE "+userAdminRole+";",
		fmt.Sprintf("CREATE USER IF NOT EXISTS %s TYPE = SERVICE DEFAULT_WAREHOUSE = %s;", user, defaultWarehouse),
	)
	if err != nil {
		return nil, fmt.Errorf("create user %s: %w", user, err)
	}
	return records, nil
}

// CreateAndGrantModifyAuthRole creates role, lets it modify the
// programmatic authentication methods of onUser, and grants it to toUser.
func CreateAndGrantModifyAuthRole(ctx context.Context, e Executor, role, onUser, toUser string) ([]warehouse.Record, error) {
	for _, id := range []struct{ kind, name string }{{"role", role}, {"user", onUser}, {"user", toUser}} {
		if err := ValidateIdentifier(id.kind, id.name); err != nil {
			return nil, err
		}
	}
	records, err := e.Exec(ctx,
		"USE ROLE "+userAdminRole+";",
		fmt.Sprintf("CREATE ROLE IF NOT EXISTS %s;", role),
		fmt.Sprintf("GRANT MODIFY PROGRAMMATIC AUTHENTICATION METHODS ON USER %s TO ROLE %s;", onUser, role),
		fmt.Sprintf("GRANT ROLE %s TO USER %s;", role, toUser),
	)
	if err != nil {
		return nil, fmt.Errorf("grant %s on %s to %s: %w", role, onUser, toUser, err)
	}
	return records, nil
}
