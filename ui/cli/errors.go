// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import "errors"

// ErrUsage is returned when flags or arguments are combined incorrectly.
var ErrUsage = errors.New("usage error")
