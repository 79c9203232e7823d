// Package tasks reconciles submitted tracks across music services.
//
// # Reconciliation
//
// [Engine.Treat] takes a track submitted on its origin service and:
//
//  1. refines its title from the origin service
//  2. ensures it is in the origin playlist and reacts with "<service>_added" or "<service>_exists"
//  3. for every other configured service, in the fixed service order, builds a placeholder with the
//     same title and submitter, cross-searches and ensures it is in that service's playlist
//  4. replies in the thread with each cross-searched link, or posts
//     "Cross searching on <Service> failed to find <title>" and reacts "<service>_not_found"
//
// A failure on one service never aborts the others. Calls are sequential; the engine is not safe for
// concurrent use and relies on the session loop treating one event at a time.
//
// # Backfill
//
// [Engine.Backfill] is the one-shot catch-up for a playlist that predates a service. It cross-searches
// every entry of one playlist on another service at the configured rate and reports [ProgressUpdate]s
// through a non-blocking channel.
package tasks
