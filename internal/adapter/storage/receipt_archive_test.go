package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	at := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	key := ObjectKey("orders", "ord-1", at)

	assert.True(t, strings.HasPrefix(key, "orders/2024/03/ord-1-"), key)
	assert.True(t, strings.HasSuffix(key, ".json"), key)
	assert.NotEqual(t, key, ObjectKey("orders", "ord-1", at))
}
