// Package chat turns raw chat events into work for the bot.
//
// [Event] mirrors the JSON frames delivered by the chat event stream. The [Classifier] is state-free:
// given one event and the submitter's username it decides whether the event is a track submission, a
// command, a notice the user should see, or nothing at all. [SlackTransport] is the production
// [Transport]; it speaks the Web API through slack-go and reads the event stream over a websocket.
package chat
