// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package wikidata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCache_Expiry(t *testing.T) {
	now := time.Unix(1000, 0)
	c := newTTLCache[string](time.Minute, func() time.Time { return now })

	c.set("a", "x")
	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	now = now.Add(time.Minute)
	_, ok = c.get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.len())
}

func TestUnitID(t *testing.T) {
	assert.Equal(t, "", unitID("1"))
	assert.Equal(t, "", unitID(""))
	assert.Equal(t, "Q11570", unitID("http://www.wikidata.org/entity/Q11570"))
}
