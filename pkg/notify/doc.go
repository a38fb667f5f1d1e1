// Package notify sends biolink's transactional email: login codes and the
// weekly merchant earnings digest. Delivery goes through Resend; templates are
// rendered to both HTML and plain text.
package notify
