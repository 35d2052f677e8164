/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package reconcile implements C4: converts a set of validate.CheckOutcome
// into the minimal set of platform mutations and applies them idempotently,
// per spec §4.4.
package reconcile

import (
	"strconv"
	"strings"

	"github.com/pvandervelde/merge-warden/platform"
	"github.com/pvandervelde/merge-warden/policy"
)

// markerPrefix is the fixed comment-marker prefix; the full marker is
// markerPrefix + kind + ":v" + schema + " -->".
const markerPrefix = "<!-- merge-warden:"

// IsBotLabel reports whether name is owned by the core: either an exact
// match on one of the configured label names, or prefixed by the size
// label prefix. This is the bot-ownership rule from spec §4.4, applied
// here (not in validate) because only the reconciler sees current label
// state.
func IsBotLabel(name string, labels policy.LabelNames, sizePrefix string) bool {
	if name == labels.InvalidTitle || name == labels.MissingWorkItem {
		return true
	}
	return sizePrefix != "" && strings.HasPrefix(name, sizePrefix)
}

// CommentKindOf returns the kind encoded in a bot comment's marker, and
// whether the comment is bot-owned at all. A comment is bot-owned iff its
// body begins with the hidden marker, per spec §4.4.
func CommentKindOf(body string) (kind platform.CommentKind, schema int, ok bool) {
	if !strings.HasPrefix(body, markerPrefix) {
		return "", 0, false
	}
	rest := body[len(markerPrefix):]
	end := strings.Index(rest, " -->")
	if end < 0 {
		return "", 0, false
	}
	marker := rest[:end]
	parts := strings.SplitN(marker, ":v", 2)
	if len(parts) != 2 {
		return "", 0, false
	}
	schema, err := strconv.Atoi(parts[1])
	if err != nil || schema <= 0 {
		return "", 0, false
	}
	return platform.CommentKind(parts[0]), schema, true
}
