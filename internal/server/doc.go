// Package server is the bot's small HTTP surface.
//
// While the bot runs, [NewBotRouter] serves /healthz (backed by [Health], which the session loop updates
// on connect and drop) and /metrics. The auth commands start a short-lived server with an [OAuthHandler]
// on the configured redirect path, open the browser on the authorization URL and wait for
// [OAuthHandler.Result].
//
// [Middleware] is applied in the order added: the first one wraps all the others.
package server
