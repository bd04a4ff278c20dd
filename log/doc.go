/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package log provides structured logging (logf under the hood) used by the caches of this module.
package log
