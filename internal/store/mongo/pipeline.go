package mongo

import (
	"finease/internal/core"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	driver "go.mongodb.org/mongo-driver/mongo"
)

// decimalZero keeps $sum in Decimal128 when an amount does not convert.
var decimalZero, _ = primitive.ParseDecimal128("0")

// amountExpr coerces stored amounts to Decimal128. Older clients posted
// amounts as strings or doubles; values that do not convert count as 0.
var amountExpr = bson.D{{Key: "$convert", Value: bson.D{
	{Key: "input", Value: "$" + core.FieldAmount},
	{Key: "to", Value: "decimal"},
	{Key: "onError", Value: decimalZero},
	{Key: "onNull", Value: decimalZero},
}}}

// normalizedTypeExpr is the stored type lower-cased.
var normalizedTypeExpr = bson.D{{Key: "$toLower", Value: "$" + core.FieldType}}

// typeExpr is the normalized type: "expanse" folds into "expense".
var typeExpr = bson.D{{Key: "$cond", Value: bson.A{
	bson.D{{Key: "$in", Value: bson.A{
		normalizedTypeExpr,
		toA(core.TypeExpense.StoredSpellings()),
	}}},
	string(core.TypeExpense),
	normalizedTypeExpr,
}}}

// monthExpr is the UTC calendar month of the date field, or null when the
// field is missing or not a date.
var monthExpr = bson.D{{Key: "$month", Value: bson.D{{Key: "$convert", Value: bson.D{
	{Key: "input", Value: "$" + core.FieldDate},
	{Key: "to", Value: "date"},
	{Key: "onError", Value: nil},
	{Key: "onNull", Value: nil},
}}}}}

func ownerFilter(email string) bson.D {
	return bson.D{{Key: core.FieldEmail, Value: email}}
}

func sumTotal() bson.E {
	return bson.E{Key: "total", Value: bson.D{{Key: "$sum", Value: amountExpr}}}
}

// firstSeen tracks the oldest record of a group. ObjectIDs grow with
// insertion time, so sorting on it keeps groups in first-seen order.
func firstSeen() bson.E {
	return bson.E{Key: "first", Value: bson.D{{Key: "$min", Value: "$" + core.FieldID}}}
}

func categoryTypePipeline(email, category string, typ core.TransactionType) driver.Pipeline {
	return driver.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: core.FieldEmail, Value: email},
			{Key: core.FieldCategory, Value: category},
			{Key: "$expr", Value: bson.D{{Key: "$in", Value: bson.A{normalizedTypeExpr, toA(typ.StoredSpellings())}}}},
		}}},
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: nil}, sumTotal()}}},
	}
}

func byTypePipeline(email string) driver.Pipeline {
	return driver.Pipeline{
		{{Key: "$match", Value: ownerFilter(email)}},
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: typeExpr}, sumTotal(), firstSeen()}}},
		{{Key: "$sort", Value: bson.D{{Key: "first", Value: 1}}}},
	}
}

func byCategoryPipeline(email string) driver.Pipeline {
	return driver.Pipeline{
		{{Key: "$match", Value: ownerFilter(email)}},
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$" + core.FieldCategory}, sumTotal(), firstSeen()}}},
		{{Key: "$sort", Value: bson.D{{Key: "first", Value: 1}}}},
	}
}

func byMonthPipeline(email string) driver.Pipeline {
	return driver.Pipeline{
		{{Key: "$match", Value: ownerFilter(email)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "month", Value: monthExpr}, {Key: "type", Value: typeExpr}}},
			sumTotal(),
		}}},
		{{Key: "$match", Value: bson.D{{Key: "_id.month", Value: bson.D{{Key: "$ne", Value: nil}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id.month", Value: 1}}}},
	}
}

func toA(values []string) bson.A {
	out := make(bson.A, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
