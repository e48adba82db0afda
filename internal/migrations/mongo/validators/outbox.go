package validators

import "go.mongodb.org/mongo-driver/bson"

var OutboxValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"job", "status", "attempts", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id": bson.M{"bsonType": "objectId"},
			"job": bson.M{
				"bsonType": "object",
				"required": []string{"booking_id", "job_kind"},
				"properties": bson.M{
					"booking_id": bson.M{"bsonType": "string", "minLength": 1},
					"job_kind":   bson.M{"bsonType": "string", "minLength": 1},
				},
			},
			"status":     bson.M{"bsonType": "string", "enum": []string{"pending", "sent"}},
			"attempts":   bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"last_error": bson.M{"bsonType": "string"},
			"created_at": bson.M{"bsonType": "date"},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}
