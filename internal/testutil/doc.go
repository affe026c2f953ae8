// Package testutil contains helper builders and tools used across tests to
// reduce boilerplate when constructing conversations and asserting how tools
// were invoked. They are not intended for production usage.
package testutil
