// Package resource provides the generic read/create/update/delete primitives
// every finance view uses. A Query owns the loading/data/error state for one
// endpoint key; a Mutation owns its own loading/error state and never writes
// into a Query. Consistency after a mutation is restored by refetching the
// paired Query, either explicitly by the caller or through Invalidates.
//
// Completion ordering across overlapping fetches is selected per Query:
// LatestIssued (default) discards completions that are not the newest issued
// request; LastSettled applies whichever response arrives last.
package resource
