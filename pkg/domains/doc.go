// Package domains checks and registers custom domains for merchants through
// a reseller JSON API. Requests go over a retrying HTTP client; availability
// answers are cached in an expiring LRU.
package domains
