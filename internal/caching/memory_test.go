package caching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MemoryStoreTestSuite struct {
	suite.Suite
	store *MemoryStore
	clock time.Time
	ctx   context.Context
}

func (suite *MemoryStoreTestSuite) SetupTest() {
	suite.store = NewMemoryStore()
	suite.clock = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	suite.store.now = func() time.Time { return suite.clock }
	suite.ctx = context.Background()
}

func TestMemoryStoreTestSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreTestSuite))
}

func (suite *MemoryStoreTestSuite) TestSetGetDelete() {
	require.NoError(suite.T(), suite.store.Set(suite.ctx, "k", []byte("v"), 0))

	got, err := suite.store.Get(suite.ctx, "k")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), []byte("v"), got)

	require.NoError(suite.T(), suite.store.Delete(suite.ctx, "k"))
	_, err = suite.store.Get(suite.ctx, "k")
	assert.True(suite.T(), errors.Is(err, ErrMiss))
}

func (suite *MemoryStoreTestSuite) TestGet_ReturnsCopy() {
	require.NoError(suite.T(), suite.store.Set(suite.ctx, "k", []byte("abc"), 0))

	got, _ := suite.store.Get(suite.ctx, "k")
	got[0] = 'z'

	again, _ := suite.store.Get(suite.ctx, "k")
	assert.Equal(suite.T(), []byte("abc"), again)
}

func (suite *MemoryStoreTestSuite) TestTTLExpiry() {
	require.NoError(suite.T(), suite.store.Set(suite.ctx, "short", []byte("1"), time.Minute))
	require.NoError(suite.T(), suite.store.Set(suite.ctx, "long", []byte("2"), time.Hour))

	suite.clock = suite.clock.Add(2 * time.Minute)

	_, err := suite.store.Get(suite.ctx, "short")
	assert.True(suite.T(), errors.Is(err, ErrMiss))
	_, err = suite.store.Get(suite.ctx, "long")
	assert.NoError(suite.T(), err)

	assert.Equal(suite.T(), 1, suite.store.Sweep())
	assert.Equal(suite.T(), 1, suite.store.Len())
}

func (suite *MemoryStoreTestSuite) TestKeys_PrefixAndExpiry() {
	_ = suite.store.Set(suite.ctx, "drafts:u1:b", nil, 0)
	_ = suite.store.Set(suite.ctx, "drafts:u1:a", nil, 0)
	_ = suite.store.Set(suite.ctx, "drafts:u2:a", nil, 0)
	_ = suite.store.Set(suite.ctx, "drafts:u1:old", nil, time.Second)

	suite.clock = suite.clock.Add(time.Minute)

	keys, err := suite.store.Keys(suite.ctx, "drafts:u1:")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"drafts:u1:a", "drafts:u1:b"}, keys)
}

func (suite *MemoryStoreTestSuite) TestJSONHelpers() {
	type payload struct {
		Name string `json:"name"`
	}
	require.NoError(suite.T(), SetJSON(suite.ctx, suite.store, "p", payload{Name: "x"}, 0))

	var got payload
	require.NoError(suite.T(), GetJSON(suite.ctx, suite.store, "p", &got))
	assert.Equal(suite.T(), "x", got.Name)

	err := GetJSON(suite.ctx, suite.store, "missing", &got)
	assert.True(suite.T(), errors.Is(err, ErrMiss))
}
