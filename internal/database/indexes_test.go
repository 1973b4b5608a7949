package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestEnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("all collections", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
		)
		assert.NoError(mt, EnsureIndexes(mt.DB))
	})

	mt.Run("stops at first failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    85,
			Name:    "IndexOptionsConflict",
			Message: "index already exists with different options",
		}))
		assert.Error(mt, EnsureIndexes(mt.DB))
	})

	mt.Run("refresh token indexes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "numIndexesAfter", Value: 4}))
		assert.NoError(mt, EnsureRefreshTokenIndexes(mt.DB))

		started := mt.GetStartedEvent()
		if assert.NotNil(mt, started) {
			assert.Equal(mt, "createIndexes", started.CommandName)
			indexes, err := started.Command.LookupErr("indexes")
			assert.NoError(mt, err)
			values, _ := indexes.Array().Values()
			if assert.Len(mt, values, 3) {
				ttl := values[2].Document()
				assert.Equal(mt, "expiresAt_ttl", ttl.Lookup("name").StringValue())
				assert.Equal(mt, int32(86400), ttl.Lookup("expireAfterSeconds").Int32())
			}
		}
	})
}
