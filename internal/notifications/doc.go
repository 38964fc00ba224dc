// Package notifications delivers pipeline events via ntfy.
//
// NewService publishes to the topic configured in config.toml (a full URL,
// or a bare topic name on ntfy.sh) and degrades to a no-op when no topic is
// set. Each event type can be switched off in the [notifications] section so
// the render pass can publish unconditionally.
package notifications
