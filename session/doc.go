// Package session broadcasts changes of the authenticated user to every
// draft controller.
//
// Drafts are keyed by entity id, not by owner, so each controller registers
// a callback here and rebuilds or revalidates its cache when notified.
package session
