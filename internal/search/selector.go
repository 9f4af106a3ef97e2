// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package search

import (
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

// SelectorKind tags a node selector.
type SelectorKind string

const (
	SelectorID   SelectorKind = "id"
	SelectorText SelectorKind = "text"
)

// Selector picks seed nodes either by relational id or by a case-sensitive
// substring of label or description.
type Selector struct {
	Kind SelectorKind `json:"kind" enum:"id,text"`
	ID   int64        `json:"id,omitempty"`
	Text string       `json:"text,omitempty"`
}

// IDSelector selects a node by id.
func IDSelector(id int64) Selector { return Selector{Kind: SelectorID, ID: id} }

// TextSelector selects nodes whose label or description contains text.
func TextSelector(text string) Selector { return Selector{Kind: SelectorText, Text: text} }

func (s Selector) validate() error {
	switch s.Kind {
	case SelectorID:
		if s.ID <= 0 {
			return sgerr.New(sgerr.CodeSearchQueryInvalid, "id selector needs a positive id", sgerr.Field("id", s.ID))
		}
	case SelectorText:
		if s.Text == "" {
			return sgerr.New(sgerr.CodeSearchQueryInvalid, "text selector needs text")
		}
	default:
		return sgerr.New(sgerr.CodeSearchQueryInvalid, "unknown selector kind", sgerr.Field("kind", string(s.Kind)))
	}
	return nil
}
