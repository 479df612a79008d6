// Package paginate partitions reflowable content into spreads of columns and
// keeps track of the spread being shown.
//
// Column flow itself is performed by an external rendering host (see
// Surface). The package only reads back laid out geometry after a settle
// delay, derives column and spread counts, translates the current spread into
// an offset and resolves navigation requests that may arrive at any time,
// including while content is still loading.
//
// All state transitions happen on a single cooperative Loop. Loader
// completions and settle timers re-enter the loop and are discarded when they
// belong to content or layout that is no longer current.
package paginate
