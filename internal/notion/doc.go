// Package notion is a small REST client for the hierarchical document store
// that holds script records: database queries, page properties, block
// children, and the file upload API.
//
// Only the endpoints and wire types the pipeline needs are modelled. Requests
// that hit rate limits are retried with exponential backoff honouring
// Retry-After; other errors surface as *APIError values.
package notion
