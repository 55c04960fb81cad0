package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type codecLine struct {
	ProductID string    `bson:"productId"`
	Price     float64   `bson:"price"`
	Quantity  int       `bson:"quantity"`
	Tags      []string  `bson:"tags"`
	AddedAt   time.Time `bson:"addedAt"`
}

func TestEncodeProducesPlainValues(t *testing.T) {
	added := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fields, err := Encode(codecLine{ProductID: "p1", Price: 500, Quantity: 2, Tags: []string{"a"}, AddedAt: added})
	require.NoError(t, err)

	assert.Equal(t, "p1", fields["productId"])
	assert.Equal(t, int64(2), fields["quantity"])
	assert.Equal(t, added, fields["addedAt"])
	assert.Equal(t, []any{"a"}, fields["tags"])
}

func TestDataToAcceptsIntegerPrices(t *testing.T) {
	doc := Document{ID: "p1", Fields: Fields{"productId": "p1", "price": int64(300), "quantity": float64(3)}}

	var line codecLine
	require.NoError(t, doc.DataTo(&line))
	assert.Equal(t, 300.0, line.Price)
	assert.Equal(t, 3, line.Quantity)
}

func TestSplitDocumentPath(t *testing.T) {
	parent, id, err := SplitDocumentPath("users/u1/cart/p1")
	require.NoError(t, err)
	assert.Equal(t, "users/u1/cart", parent)
	assert.Equal(t, "p1", id)

	_, _, err = SplitDocumentPath("users/u1/cart")
	assert.ErrorIs(t, err, ErrInvalidPath)
	assert.NoError(t, ValidateCollectionPath("users/u1/cart"))
	assert.ErrorIs(t, ValidateCollectionPath("users/u1"), ErrInvalidPath)
}

func TestMongoUpdateTranslatesSentinels(t *testing.T) {
	update := mongoUpdate(Fields{"quantity": Increment(1), "createdAt": ServerTimestamp, "name": "x"})
	assert.Equal(t, bson.M{"quantity": int64(1)}, update["$inc"])
	assert.Contains(t, update, "$currentDate")
	assert.Contains(t, update, "$set")
}
