// Package gate implements the access-control caches that sit on the
// request path: an allowlist of privileged automation accounts, a
// system-account ownership cache, and an IP block list enforced as
// HTTP middleware.
//
// The two identifier caches tolerate backend outages by serving a stale
// snapshot once a fetch has succeeded, and by denying before that. The
// block list is the opposite: it fails open, so a cache outage degrades
// enforcement instead of taking down all traffic.
package gate
