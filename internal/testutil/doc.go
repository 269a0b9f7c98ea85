// Package testutil contains scripted fakes for the gateway interfaces used
// across tests to reduce boilerplate when driving session turns without real
// providers. These helpers are intentionally minimal and avoid adding
// third-party dependencies. They are not intended for production usage.
package testutil
