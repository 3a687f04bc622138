// Copyright (c) 2020-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package progresslog provides periodic logging for block index processing.

Tests are included to ensure proper functionality.

## Feature Overview

- Maintains cumulative totals about headers between each logging interval
  - Total number of headers
  - Total number of headers with witness fields
  - Total number of headers with block data
  - Total number of headers known to be invalid
- Logs all cumulative data every 10 seconds
- Immediately logs any outstanding data when forced
*/
package progresslog
