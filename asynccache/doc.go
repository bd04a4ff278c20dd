/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package asynccache turns a blocking cache.Cache into an asynchronous one.
// Operations are queued and executed by a fixed set of worker goroutines,
// so callbacks are invoked on the workers and never on the goroutine that called Get.
package asynccache
