// Package telegram is the chat front end: a small Bot API client, the
// delivery sink and status reporter bound to one chat, the operator notifier,
// update routing, and the webhook or long-poll runtime behind a chi server.
package telegram
